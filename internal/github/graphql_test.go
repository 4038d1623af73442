package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphqlEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{
			name:    "public api",
			baseURL: "https://api.github.com",
			want:    "https://api.github.com/graphql",
		},
		{
			name:    "enterprise host",
			baseURL: "https://ghe.example.com/api/v3",
			want:    "https://ghe.example.com/api/graphql",
		},
		{
			name:    "missing scheme",
			baseURL: "api.github.com",
			wantErr: true,
		},
		{
			name:    "empty",
			baseURL: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := graphqlEndpoint(tt.baseURL)
			if tt.wantErr {
				require.Error(t, err)
				var invalidHost *InvalidHostError
				assert.ErrorAs(t, err, &invalidHost)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func enrichmentOver(server *httptest.Server) *EnrichmentClient {
	return &EnrichmentClient{
		client: githubv4.NewEnterpriseClient(server.URL, server.Client()),
		logger: quietLogger(),
	}
}

func TestContributionCalendar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"data":{
			"user":{"contributionsCollection":{"contributionCalendar":{
				"totalContributions":1234,
				"weeks":[{"contributionDays":[
					{"date":"2026-08-24","contributionCount":3},
					{"date":"2026-08-25","contributionCount":0}
				]}]}}},
			"rateLimit":{"limit":5000,"remaining":4990,"used":10,"resetAt":"2026-08-30T12:00:00Z"}
		}}`)
	}))
	defer server.Close()

	enrichment := enrichmentOver(server)
	calendar, err := enrichment.ContributionCalendar(context.Background(), "octocat")
	require.NoError(t, err)
	require.NotNil(t, calendar)

	assert.Equal(t, "octocat", calendar.Login)
	assert.Equal(t, 1234, calendar.Total)
	require.Len(t, calendar.Cells, 2)
	assert.Equal(t, 3, calendar.Cells[0].Count)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), calendar.Cells[0].Date)
	assert.Zero(t, calendar.Cells[1].Count)

	snap := enrichment.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 5000, snap.Limit)
	assert.Equal(t, 4990, snap.Remaining)
	assert.Equal(t, 10, snap.Used)
	assert.Equal(t, "graphql", snap.Resource)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), snap.Reset.UTC())
}

func TestContributionCalendar_QueryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"Could not resolve to a User with the login of 'ghost'"}]}`)
	}))
	defer server.Close()

	enrichment := enrichmentOver(server)
	calendar, err := enrichment.ContributionCalendar(context.Background(), "ghost")
	require.Error(t, err)
	assert.Nil(t, calendar)
	assert.Nil(t, enrichment.Snapshot(), "failed query leaves no snapshot behind")
}

func TestContributionCalendar_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	enrichment := enrichmentOver(server)
	calendar, err := enrichment.ContributionCalendar(context.Background(), "octocat")
	require.Error(t, err)
	assert.Nil(t, calendar)
}
