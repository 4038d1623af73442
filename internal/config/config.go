package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               string
	DBConnectionString string
	GitHubToken        string
	APIBaseURL         string
	RefreshInterval    time.Duration
	MaxConcurrentRepos int
	MonitoredRepos     []string
}

func Load() (*Config, error) {
	port := getEnv("PORT", "8080")
	dbConnStr := getEnv("DB_CONNECTION_STRING", "")
	githubToken := getEnv("GITHUB_TOKEN", "")
	apiBaseURL := getEnv("API_BASE_URL", "https://api.github.com")

	refreshInterval, err := strconv.Atoi(getEnv("REFRESH_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, err
	}

	maxConcurrent, err := strconv.Atoi(getEnv("MAX_CONCURRENT_REPOS", "4"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:               port,
		DBConnectionString: dbConnStr,
		GitHubToken:        githubToken,
		APIBaseURL:         apiBaseURL,
		RefreshInterval:    time.Duration(refreshInterval) * time.Minute,
		MaxConcurrentRepos: maxConcurrent,
		MonitoredRepos:     splitList(getEnv("MONITORED_REPOS", "")),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
