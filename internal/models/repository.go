package models

import "time"

// CIStatus is the overall state of the most recent CI run for a repository.
type CIStatus string

const (
	CIStatusPassing CIStatus = "passing"
	CIStatusFailing CIStatus = "failing"
	CIStatusPending CIStatus = "pending"
	CIStatusUnknown CIStatus = "unknown"
)

// Repository is the aggregate snapshot of a single monitored repository.
// It is rebuilt from scratch on every refresh cycle and is always
// constructible: when every enrichment fetch fails it degrades to
// zero/empty/unknown fields with Error populated.
type Repository struct {
	ID    int64  `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`

	// SortOrder is display ordering only, never identity.
	SortOrder int `json:"sort_order"`

	// Error carries the latest partial-failure message, if any. It is
	// advisory: the rest of the snapshot is still usable.
	Error string `json:"error,omitempty"`

	// RateLimitedUntil is set when a fetch hit the API rate limit; callers
	// should not retry this surface before the stated time.
	RateLimitedUntil *time.Time `json:"rate_limited_until,omitempty"`

	CIStatus   CIStatus `json:"ci_status"`
	CIRunCount int      `json:"ci_run_count"`

	OpenIssues int `json:"open_issues"`
	OpenPulls  int `json:"open_pulls"`
	Stars      int `json:"stargazers_count"`
	Forks      int `json:"forks_count"`

	PushedAt       *time.Time      `json:"pushed_at,omitempty"`
	LatestRelease  *Release        `json:"latest_release,omitempty"`
	LatestActivity *time.Time      `json:"latest_activity,omitempty"`
	ActivityEvents []ActivityEvent `json:"activity_events,omitempty"`
	Traffic        *TrafficStats   `json:"traffic,omitempty"`
	Heatmap        []HeatmapCell   `json:"heatmap,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// FullName returns the owner/name identifier used by the GitHub API.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Release is the latest non-draft release of a repository.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	URL         string    `json:"html_url"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// ActivityEvent is one entry of a repository's recent event feed.
type ActivityEvent struct {
	Type      string    `json:"type"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// TrafficStats holds visitor and cloner counts over the trailing window
// the API reports (14 days). Only available with push access.
type TrafficStats struct {
	Views        int `json:"views"`
	UniqueViews  int `json:"unique_views"`
	Clones       int `json:"clones"`
	UniqueClones int `json:"unique_clones"`
}

// HeatmapCell is one day of the commit heatmap, ordered oldest first.
type HeatmapCell struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// ContributionCalendar is the supplemental contribution heatmap fetched
// over the GraphQL channel. Best effort only.
type ContributionCalendar struct {
	Login string        `json:"login"`
	Total int           `json:"total"`
	Cells []HeatmapCell `json:"cells"`
}

// MonitoredRepository is a repository the refresh service keeps synced.
type MonitoredRepository struct {
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	AddedAt   time.Time `json:"added_at"`
}
