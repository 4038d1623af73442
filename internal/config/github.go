package config

import "time"

// GitHubConfig holds GitHub-specific configuration
type GitHubConfig struct {
	Token      string
	APIBaseURL string
	Throttle   ThrottleConfig
}

// ThrottleConfig holds proactive request throttling configuration
type ThrottleConfig struct {
	// RequestsPerSecond caps the outbound request rate ahead of any
	// server-imposed limit. Zero disables the proactive throttle.
	RequestsPerSecond float64
	Burst             int
}

// RefreshConfig holds refresh cycle configuration
type RefreshConfig struct {
	Interval           time.Duration
	MaxConcurrentRepos int
}

// DefaultGitHubConfig returns the default GitHub configuration
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{
		APIBaseURL: "https://api.github.com",
		Throttle: ThrottleConfig{
			RequestsPerSecond: 1.2,
			Burst:             5,
		},
	}
}

// DefaultRefreshConfig returns the default refresh configuration
func DefaultRefreshConfig() *RefreshConfig {
	return &RefreshConfig{
		Interval:           time.Minute * 5,
		MaxConcurrentRepos: 4,
	}
}
