package github

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/internal/models"
)

// EnrichmentClient is the secondary GraphQL channel. It supplies
// non-critical extras like contribution calendars; it resolves its own
// endpoint per deployment, reuses the same token scope, and tracks its own
// rate limit snapshot because GraphQL draws from an independent budget.
// Its failures never affect the primary aggregate.
type EnrichmentClient struct {
	client *githubv4.Client
	logger logrus.FieldLogger

	mu       sync.Mutex
	snapshot *RateLimitSnapshot
}

// graphqlEndpoint resolves the GraphQL URL for an API base: the public API
// serves it at /graphql, GitHub Enterprise hosts at /api/graphql.
func graphqlEndpoint(apiBaseURL string) (string, error) {
	base, err := url.Parse(apiBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", &InvalidHostError{Host: apiBaseURL}
	}
	if base.Host == "api.github.com" {
		return "https://api.github.com/graphql", nil
	}
	return fmt.Sprintf("%s://%s/api/graphql", base.Scheme, base.Host), nil
}

// tokenSource adapts a TokenProvider to the oauth2 transport.
type tokenSource struct {
	tokens TokenProvider
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	token, err := s.tokens.Token(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token}, nil
}

// NewEnrichmentClient creates the GraphQL enrichment channel.
func NewEnrichmentClient(cfg *config.GitHubConfig, tokens TokenProvider, logger logrus.FieldLogger) (*EnrichmentClient, error) {
	endpoint, err := graphqlEndpoint(cfg.APIBaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(context.Background(), tokenSource{tokens: tokens})
	httpClient.Timeout = 60 * time.Second

	return &EnrichmentClient{
		client: githubv4.NewEnterpriseClient(endpoint, httpClient),
		logger: logger,
	}, nil
}

type contributionQuery struct {
	User struct {
		ContributionsCollection struct {
			ContributionCalendar struct {
				TotalContributions githubv4.Int
				Weeks              []struct {
					ContributionDays []struct {
						Date              githubv4.String
						ContributionCount githubv4.Int
					}
				}
			}
		}
	} `graphql:"user(login: $login)"`
	RateLimit struct {
		Limit     githubv4.Int
		Remaining githubv4.Int
		Used      githubv4.Int
		ResetAt   githubv4.DateTime
	}
}

// ContributionCalendar fetches the contribution heatmap for a user. This
// is best-effort enrichment: callers treat a nil result as "no calendar"
// and must not fold the error into a repository aggregate.
func (e *EnrichmentClient) ContributionCalendar(ctx context.Context, login string) (*models.ContributionCalendar, error) {
	var q contributionQuery
	variables := map[string]interface{}{
		"login": githubv4.String(login),
	}

	start := time.Now()
	err := e.client.Query(ctx, &q, variables)
	if err != nil {
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{
				"login":       login,
				"duration_ms": time.Since(start).Milliseconds(),
			}).WithError(err).Debug("contribution calendar query failed")
		}
		return nil, fmt.Errorf("contribution calendar for %s: %w", login, err)
	}

	e.mu.Lock()
	e.snapshot = &RateLimitSnapshot{
		Limit:      int(q.RateLimit.Limit),
		Remaining:  int(q.RateLimit.Remaining),
		Used:       int(q.RateLimit.Used),
		Reset:      q.RateLimit.ResetAt.Time,
		Resource:   "graphql",
		ObservedAt: time.Now(),
	}
	e.mu.Unlock()

	calendar := &models.ContributionCalendar{
		Login: login,
		Total: int(q.User.ContributionsCollection.ContributionCalendar.TotalContributions),
	}
	for _, week := range q.User.ContributionsCollection.ContributionCalendar.Weeks {
		for _, day := range week.ContributionDays {
			date, err := time.Parse("2006-01-02", string(day.Date))
			if err != nil {
				continue
			}
			calendar.Cells = append(calendar.Cells, models.HeatmapCell{
				Date:  date,
				Count: int(day.ContributionCount),
			})
		}
	}
	return calendar, nil
}

// Snapshot returns the last observed GraphQL rate limit state.
func (e *EnrichmentClient) Snapshot() *RateLimitSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}
