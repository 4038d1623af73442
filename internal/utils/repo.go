package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepoURL parses a GitHub repository URL into owner and name components
func ParseRepoURL(repoURL string) (owner, name string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", err
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid GitHub repository URL")
	}

	return parts[0], parts[1], nil
}

// ParseOwnerRepo splits an "owner/name" pair as used in API paths and config.
func ParseOwnerRepo(full string) (owner, name string, err error) {
	parts := strings.Split(strings.TrimSpace(full), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid owner/name pair: %q", full)
	}
	return parts[0], parts[1], nil
}
