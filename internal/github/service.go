package github

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/internal/models"
)

// Aggregator builds one repository snapshot; implemented by Client.
type Aggregator interface {
	FullRepository(ctx context.Context, owner, name string) *models.Repository
}

// SnapshotStore is the persistence the refresh service needs.
type SnapshotStore interface {
	ListMonitoredRepositories(ctx context.Context) ([]*models.MonitoredRepository, error)
	SaveSnapshot(ctx context.Context, repo *models.Repository) error
}

// RefreshService periodically rebuilds snapshots for every monitored
// repository. A newly started cycle supersedes a still-running one: the
// old cycle's context is cancelled and it unwinds between phases, keeping
// whatever it already cached.
type RefreshService struct {
	aggregator Aggregator
	store      SnapshotStore
	logger     logrus.FieldLogger
	cfg        *config.RefreshConfig

	cron    *cron.Cron
	mu      sync.Mutex
	cancel  context.CancelFunc
	lastRun time.Time
}

// NewRefreshService creates a refresh service over the given aggregator
// and store.
func NewRefreshService(aggregator Aggregator, store SnapshotStore, cfg *config.RefreshConfig, logger logrus.FieldLogger) *RefreshService {
	return &RefreshService{
		aggregator: aggregator,
		store:      store,
		logger:     logger,
		cfg:        cfg,
		cron:       cron.New(),
	}
}

// Start schedules periodic refresh cycles and runs the first one
// immediately in the background.
func (s *RefreshService) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.RefreshAll(ctx); err != nil {
			s.logger.WithError(err).Error("Refresh cycle failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.cron.Start()
	go func() {
		if err := s.RefreshAll(ctx); err != nil {
			s.logger.WithError(err).Error("Initial refresh failed")
		}
	}()
	return nil
}

// Stop halts the schedule and cancels any in-flight cycle.
func (s *RefreshService) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// RefreshAll runs one refresh cycle over all monitored repositories,
// fanning out FullRepository with bounded concurrency and persisting each
// snapshot as it lands. Individual repository failures are already folded
// into their snapshots; only listing or persistence problems surface here.
func (s *RefreshService) RefreshAll(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	cycleCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lastRun = time.Now()
	s.mu.Unlock()
	defer cancel()

	repos, err := s.store.ListMonitoredRepositories(cycleCtx)
	if err != nil {
		return fmt.Errorf("failed to list monitored repositories: %w", err)
	}

	start := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxConcurrentRepos)

	for _, monitored := range repos {
		monitored := monitored
		g.Go(func() error {
			if cycleCtx.Err() != nil {
				return nil
			}

			snapshot := s.aggregator.FullRepository(cycleCtx, monitored.Owner, monitored.Name)
			snapshot.SortOrder = monitored.SortOrder

			if snapshot.Error != "" {
				s.logger.WithFields(logrus.Fields{
					"repository": snapshot.FullName(),
					"error":      snapshot.Error,
				}).Warn("Snapshot refreshed with partial failure")
			}

			if err := s.store.SaveSnapshot(cycleCtx, snapshot); err != nil {
				s.logger.WithError(err).WithField("repository", snapshot.FullName()).Error("Failed to persist snapshot")
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithFields(logrus.Fields{
		"repositories": len(repos),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Refresh cycle complete")
	return nil
}

// LastRun reports when the most recent cycle started.
func (s *RefreshService) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
