package github

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/repopulse/repopulse/internal/models"
)

// errorAccumulator folds failures from concurrent sub-fetches into one
// representative outcome. It is write-only while an aggregation runs and
// read once at the end; it never raises.
//
// Merge policy: a rate limit signal always wins, because its reset time is
// the most actionable thing we can tell the user. A generic failure only
// lands when no rate limit message is present, and the first one sticks.
type errorAccumulator struct {
	mu          sync.Mutex
	until       *time.Time
	message     string
	rateLimited bool
}

func (a *errorAccumulator) absorb(err error) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if rle, ok := err.(*RateLimitError); ok {
		until := rle.Until
		a.until = &until
		a.message = rle.Error()
		a.rateLimited = true
		return
	}
	if !a.rateLimited && a.message == "" {
		a.message = err.Error()
	}
}

func (a *errorAccumulator) apply(repo *models.Repository) {
	a.mu.Lock()
	defer a.mu.Unlock()
	repo.Error = a.message
	repo.RateLimitedUntil = a.until
}

// FullRepository assembles one repository snapshot from many independent
// API calls. The details fetch runs first: if it fails, a placeholder
// carrying only identity plus the accumulated error is returned. The
// remaining sub-fetches run concurrently, each wrapped so its failure can
// neither cancel siblings nor escape this method. FullRepository never
// returns an error.
func (c *Client) FullRepository(ctx context.Context, owner, name string) *models.Repository {
	repo := &models.Repository{
		Owner:     owner,
		Name:      name,
		CIStatus:  models.CIStatusUnknown,
		FetchedAt: time.Now(),
	}
	acc := &errorAccumulator{}

	details, err := c.fetchDetails(ctx, owner, name)
	if err != nil {
		acc.absorb(err)
		acc.apply(repo)
		return repo
	}

	repo.ID = details.ID
	repo.Stars = details.StargazersCount
	repo.Forks = details.ForksCount
	repo.OpenIssues = details.OpenIssuesCount
	repo.PushedAt = details.PushedAt

	// A superseded refresh cycle unwinds here; whatever the details call
	// already cached stays valid.
	if ctx.Err() != nil {
		acc.absorb(ctx.Err())
		acc.apply(repo)
		return repo
	}

	// Fan out the enrichment fetches. Each task writes into its own slot;
	// results are merged sequentially after the join.
	var (
		pulls       int
		pullsErr    error
		ciStatus    models.CIStatus
		ciRuns      int
		ciErr       error
		latest      *time.Time
		events      []models.ActivityEvent
		activityErr error
		traffic     *models.TrafficStats
		trafficErr  error
		heatmap     []models.HeatmapCell
		heatmapErr  error
		release     *models.Release
		releaseErr  error
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		pulls, pullsErr = c.fetchOpenPullCount(ctx, owner, name)
		return nil
	})
	g.Go(func() error {
		ciStatus, ciRuns, ciErr = c.fetchCIStatus(ctx, owner, name)
		return nil
	})
	g.Go(func() error {
		latest, events, activityErr = c.fetchLatestActivity(ctx, owner, name)
		return nil
	})
	g.Go(func() error {
		traffic, trafficErr = c.fetchTraffic(ctx, owner, name)
		return nil
	})
	g.Go(func() error {
		heatmap, heatmapErr = c.fetchHeatmap(ctx, owner, name)
		return nil
	})
	g.Go(func() error {
		release, releaseErr = c.fetchLatestRelease(ctx, owner, name)
		return nil
	})
	_ = g.Wait()

	if pullsErr != nil {
		acc.absorb(pullsErr)
	} else {
		repo.OpenPulls = pulls
		// The details payload counts pull requests as issues.
		if issues := details.OpenIssuesCount - pulls; issues > 0 {
			repo.OpenIssues = issues
		} else {
			repo.OpenIssues = 0
		}
	}

	if ciErr != nil {
		acc.absorb(ciErr)
	} else {
		repo.CIStatus = ciStatus
		repo.CIRunCount = ciRuns
	}

	if activityErr != nil {
		acc.absorb(activityErr)
	} else {
		repo.LatestActivity = latest
		repo.ActivityEvents = events
	}

	if trafficErr != nil {
		acc.absorb(trafficErr)
	} else {
		repo.Traffic = traffic
	}

	if heatmapErr != nil {
		acc.absorb(heatmapErr)
	} else {
		repo.Heatmap = heatmap
	}

	if releaseErr != nil {
		acc.absorb(releaseErr)
	} else {
		repo.LatestRelease = release
	}

	acc.apply(repo)
	return repo
}
