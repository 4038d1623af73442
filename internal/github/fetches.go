package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/repopulse/repopulse/internal/models"
)

// Individual sub-fetches behind FullRepository. Each hits one endpoint
// through authorizedGet and maps the payload to the entity model.

func (c *Client) fetchDetails(ctx context.Context, owner, name string) (*repoDetails, error) {
	var details repoDetails
	endpoint := fmt.Sprintf("/repos/%s/%s", owner, name)
	if err := c.getJSON(ctx, endpoint, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// fetchOpenPullCount counts open pull requests. The list endpoint exposes
// no total, so we request a single-element page and read the true count
// from the rel="last" pagination hint, falling back to the page length.
func (c *Client) fetchOpenPullCount(ctx context.Context, owner, name string) (int, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/pulls?state=open&per_page=1", owner, name)
	resp, err := c.authorizedGet(ctx, endpoint)
	if err != nil {
		return 0, err
	}

	if page, ok := lastPage(resp.Header.Get("Link")); ok {
		return page, nil
	}

	var pulls []pullSummary
	if err := json.Unmarshal(resp.Body, &pulls); err != nil {
		return 0, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return len(pulls), nil
}

func (c *Client) fetchCIStatus(ctx context.Context, owner, name string) (models.CIStatus, int, error) {
	var runs workflowRunList
	endpoint := fmt.Sprintf("/repos/%s/%s/actions/runs?per_page=1", owner, name)
	if err := c.getJSON(ctx, endpoint, &runs); err != nil {
		return models.CIStatusUnknown, 0, err
	}

	if len(runs.WorkflowRuns) == 0 {
		return models.CIStatusUnknown, 0, nil
	}

	run := runs.WorkflowRuns[0]
	status := models.CIStatusUnknown
	switch {
	case run.Status == "queued" || run.Status == "in_progress":
		status = models.CIStatusPending
	case run.Conclusion == "success":
		status = models.CIStatusPassing
	case run.Conclusion == "failure" || run.Conclusion == "timed_out" || run.Conclusion == "startup_failure":
		status = models.CIStatusFailing
	}
	return status, runs.TotalCount, nil
}

func (c *Client) fetchLatestActivity(ctx context.Context, owner, name string) (*time.Time, []models.ActivityEvent, error) {
	var payload []eventSummary
	endpoint := fmt.Sprintf("/repos/%s/%s/events?per_page=10", owner, name)
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, nil, err
	}

	if len(payload) == 0 {
		return nil, nil, nil
	}

	events := make([]models.ActivityEvent, 0, len(payload))
	latest := payload[0].CreatedAt
	for _, e := range payload {
		if e.CreatedAt.After(latest) {
			latest = e.CreatedAt
		}
		events = append(events, models.ActivityEvent{
			Type:      e.Type,
			Actor:     e.Actor.Login,
			CreatedAt: e.CreatedAt,
		})
	}
	return &latest, events, nil
}

// fetchTraffic combines the views and clones endpoints. Both need push
// access; a failure on either fails the pair.
func (c *Client) fetchTraffic(ctx context.Context, owner, name string) (*models.TrafficStats, error) {
	var views, clones trafficCount
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/traffic/views", owner, name), &views); err != nil {
		return nil, err
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/traffic/clones", owner, name), &clones); err != nil {
		return nil, err
	}
	return &models.TrafficStats{
		Views:        views.Count,
		UniqueViews:  views.Uniques,
		Clones:       clones.Count,
		UniqueClones: clones.Uniques,
	}, nil
}

// fetchHeatmap reads the commit activity statistics. The server computes
// these asynchronously and answers 202 until they are ready; authorizedGet
// turns that into a cooldown so the next refresh cycle retries.
func (c *Client) fetchHeatmap(ctx context.Context, owner, name string) ([]models.HeatmapCell, error) {
	var weeks []commitActivityWeek
	endpoint := fmt.Sprintf("/repos/%s/%s/stats/commit_activity", owner, name)
	if err := c.getJSON(ctx, endpoint, &weeks); err != nil {
		return nil, err
	}

	var cells []models.HeatmapCell
	for _, week := range weeks {
		start := time.Unix(week.Week, 0).UTC()
		for i, count := range week.Days {
			cells = append(cells, models.HeatmapCell{
				Date:  start.AddDate(0, 0, i),
				Count: count,
			})
		}
	}
	return cells, nil
}

// fetchLatestRelease returns the newest non-draft release, or nil when the
// repository has none.
func (c *Client) fetchLatestRelease(ctx context.Context, owner, name string) (*models.Release, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/releases?per_page=10", owner, name)
	resp, err := c.authorizedGet(ctx, endpoint, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var releases []releaseSummary
	if err := json.Unmarshal(resp.Body, &releases); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	for _, rel := range releases {
		if rel.Draft {
			continue
		}
		return &models.Release{
			TagName:     rel.TagName,
			Name:        rel.Name,
			URL:         rel.HTMLURL,
			Prerelease:  rel.Prerelease,
			PublishedAt: rel.PublishedAt,
		}, nil
	}
	return nil, nil
}
