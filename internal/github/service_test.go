package github

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/internal/models"
)

type fakeAggregator struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
}

// FullRepository records the call and, when block is set, parks the first
// call until the channel closes or the cycle is cancelled.
func (f *fakeAggregator) FullRepository(ctx context.Context, owner, name string) *models.Repository {
	f.mu.Lock()
	first := len(f.calls) == 0
	f.calls = append(f.calls, owner+"/"+name)
	block := f.block
	f.mu.Unlock()

	if block != nil && first {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	return &models.Repository{Owner: owner, Name: name, FetchedAt: time.Now()}
}

func (f *fakeAggregator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSnapshotStore struct {
	mu        sync.Mutex
	monitored []*models.MonitoredRepository
	listErr   error
	saved     []*models.Repository
	saveErr   error
}

func (f *fakeSnapshotStore) ListMonitoredRepositories(ctx context.Context) ([]*models.MonitoredRepository, error) {
	return f.monitored, f.listErr
}

func (f *fakeSnapshotStore) SaveSnapshot(ctx context.Context, repo *models.Repository) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, repo)
	return f.saveErr
}

func (f *fakeSnapshotStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRefreshAll_PersistsEverySnapshot(t *testing.T) {
	agg := &fakeAggregator{}
	store := &fakeSnapshotStore{
		monitored: []*models.MonitoredRepository{
			{Owner: "octo", Name: "alpha", SortOrder: 2},
			{Owner: "octo", Name: "beta", SortOrder: 1},
		},
	}
	svc := NewRefreshService(agg, store, &config.RefreshConfig{
		Interval:           time.Minute,
		MaxConcurrentRepos: 2,
	}, quietLogger())

	require.NoError(t, svc.RefreshAll(context.Background()))

	assert.Equal(t, 2, agg.callCount())
	require.Equal(t, 2, store.savedCount())

	orders := map[string]int{}
	for _, snap := range store.saved {
		orders[snap.FullName()] = snap.SortOrder
	}
	assert.Equal(t, 2, orders["octo/alpha"], "sort order carried onto the snapshot")
	assert.Equal(t, 1, orders["octo/beta"])

	assert.WithinDuration(t, time.Now(), svc.LastRun(), 5*time.Second)
}

func TestRefreshAll_ListFailure(t *testing.T) {
	agg := &fakeAggregator{}
	store := &fakeSnapshotStore{listErr: errors.New("db down")}
	svc := NewRefreshService(agg, store, &config.RefreshConfig{
		Interval:           time.Minute,
		MaxConcurrentRepos: 2,
	}, quietLogger())

	err := svc.RefreshAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Zero(t, agg.callCount())
}

func TestRefreshAll_SaveFailureDoesNotAbortCycle(t *testing.T) {
	agg := &fakeAggregator{}
	store := &fakeSnapshotStore{
		monitored: []*models.MonitoredRepository{
			{Owner: "octo", Name: "alpha"},
			{Owner: "octo", Name: "beta"},
		},
		saveErr: errors.New("disk full"),
	}
	svc := NewRefreshService(agg, store, &config.RefreshConfig{
		Interval:           time.Minute,
		MaxConcurrentRepos: 1,
	}, quietLogger())

	require.NoError(t, svc.RefreshAll(context.Background()))
	assert.Equal(t, 2, agg.callCount(), "remaining repositories still refreshed")
}

func TestRefreshAll_NewCycleSupersedesRunningOne(t *testing.T) {
	block := make(chan struct{})
	agg := &fakeAggregator{block: block}
	store := &fakeSnapshotStore{
		monitored: []*models.MonitoredRepository{
			{Owner: "octo", Name: "alpha"},
		},
	}
	svc := NewRefreshService(agg, store, &config.RefreshConfig{
		Interval:           time.Minute,
		MaxConcurrentRepos: 1,
	}, quietLogger())

	done := make(chan struct{})
	go func() {
		_ = svc.RefreshAll(context.Background())
		close(done)
	}()

	// Wait for the first cycle to be in flight, then start a second one.
	require.Eventually(t, func() bool { return agg.callCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.RefreshAll(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded cycle did not unwind after cancellation")
	}
	assert.Equal(t, 2, agg.callCount())
}

func TestRefreshService_Stop(t *testing.T) {
	block := make(chan struct{})
	agg := &fakeAggregator{block: block}
	store := &fakeSnapshotStore{
		monitored: []*models.MonitoredRepository{
			{Owner: "octo", Name: "alpha"},
		},
	}
	svc := NewRefreshService(agg, store, &config.RefreshConfig{
		Interval:           time.Minute,
		MaxConcurrentRepos: 1,
	}, quietLogger())

	done := make(chan struct{})
	go func() {
		_ = svc.RefreshAll(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return agg.callCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	svc.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight cycle did not unwind on Stop")
	}
}
