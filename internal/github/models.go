package github

import "time"

// Wire payloads for the REST endpoints the aggregator touches. Only the
// fields we read are declared.

type repoDetails struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	PushedAt        *time.Time `json:"pushed_at"`
	DefaultBranch   string     `json:"default_branch"`
}

type pullSummary struct {
	Number int `json:"number"`
}

type workflowRunList struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []workflowRun `json:"workflow_runs"`
}

type workflowRun struct {
	Status     string `json:"status"`     // queued, in_progress, completed
	Conclusion string `json:"conclusion"` // success, failure, cancelled, ...
}

type eventSummary struct {
	Type  string `json:"type"`
	Actor struct {
		Login string `json:"login"`
	} `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

type trafficCount struct {
	Count   int `json:"count"`
	Uniques int `json:"uniques"`
}

type commitActivityWeek struct {
	Week  int64 `json:"week"` // Unix timestamp of the week start
	Total int   `json:"total"`
	Days  []int `json:"days"` // Sunday first
}

type releaseSummary struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}
