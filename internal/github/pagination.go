package github

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// linkRegex matches Link header entries: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// parseLinks extracts all URLs from a Link header by relationship type.
func parseLinks(linkHeader string) map[string]string {
	links := make(map[string]string)
	if linkHeader == "" {
		return links
	}

	for _, part := range strings.Split(linkHeader, ",") {
		matches := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(matches) == 3 {
			links[matches[2]] = matches[1]
		}
	}

	return links
}

// lastPage extracts the page number of the rel="last" entry from a Link
// header. Endpoints that only expose totals through pagination report
// their true count this way. Returns false on any parse failure; callers
// fall back to counting the returned page.
func lastPage(linkHeader string) (int, bool) {
	lastURL, ok := parseLinks(linkHeader)["last"]
	if !ok {
		return 0, false
	}

	u, err := url.Parse(lastURL)
	if err != nil {
		return 0, false
	}

	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}
