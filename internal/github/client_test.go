package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopulse/repopulse/internal/config"
)

func setupTestClient(t *testing.T) (*Client, *httptest.Server, *int64) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	var calls int64
	server := httptest.NewServer(nil)
	t.Cleanup(server.Close)

	cfg := &config.GitHubConfig{APIBaseURL: server.URL}
	client, err := NewClient(cfg, StaticTokenProvider("test-token"), logger,
		WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return client, server, &calls
}

// setHandler installs a handler that counts every request actually
// reaching the network.
func setHandler(server *httptest.Server, calls *int64, fn http.HandlerFunc) {
	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		fn(w, r)
	})
}

func TestClient_InvalidHost(t *testing.T) {
	cfg := &config.GitHubConfig{APIBaseURL: "not a url"}
	_, err := NewClient(cfg, StaticTokenProvider("t"), logrus.New())
	assert.Error(t, err)
	assert.IsType(t, &InvalidHostError{}, err)
}

func TestClient_ConditionalCache(t *testing.T) {
	client, server, calls := setupTestClient(t)
	ctx := context.Background()

	const body = `{"name":"repo-one","stargazers_count":42}`
	var sawValidator atomic.Bool

	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		if r.Header.Get("If-None-Match") == `"etag-1"` {
			sawValidator.Store(true)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})

	first, err := client.authorizedGet(ctx, "/repos/o/r")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, body, string(first.Body))

	second, err := client.authorizedGet(ctx, "/repos/o/r")
	require.NoError(t, err)
	assert.True(t, sawValidator.Load())
	assert.True(t, second.FromCache)
	// The revalidated body is the stored bytes, verbatim.
	assert.Equal(t, first.Body, second.Body)

	summary := client.DiagnosticsSummary()
	assert.Equal(t, 1, summary.CacheEntries)
}

func TestClient_RateLimited(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit reset time", func(t *testing.T) {
		client, server, calls := setupTestClient(t)
		reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)

		setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", "5000")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := client.authorizedGet(ctx, "/repos/o/r")
		require.Error(t, err)
		var rle *RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.True(t, rle.Until.Equal(reset), "until should equal the advertised reset time")
	})

	t.Run("no reset metadata defaults to 60s", func(t *testing.T) {
		client, server, calls := setupTestClient(t)

		setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		before := time.Now()
		_, err := client.authorizedGet(ctx, "/repos/o/r")
		require.Error(t, err)
		var rle *RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.WithinDuration(t, before.Add(defaultRateLimitBackoff), rle.Until, 2*time.Second)
	})

	t.Run("global state short-circuits without network calls", func(t *testing.T) {
		client, server, calls := setupTestClient(t)

		setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := client.authorizedGet(ctx, "/repos/o/r")
		require.Error(t, err)
		seen := atomic.LoadInt64(calls)

		// A different endpoint must be rejected locally.
		_, err = client.authorizedGet(ctx, "/repos/o/other")
		require.Error(t, err)
		assert.True(t, IsRateLimitError(err))
		assert.Equal(t, seen, atomic.LoadInt64(calls))

		until, msg := client.RateLimitState()
		require.NotNil(t, until)
		assert.NotEmpty(t, msg)
	})
}

func TestClient_AsyncPendingCooldown(t *testing.T) {
	client, server, calls := setupTestClient(t)
	ctx := context.Background()

	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	before := time.Now()
	_, err := client.authorizedGet(ctx, "/repos/o/r/stats/commit_activity")
	require.Error(t, err)
	var sue *ServiceUnavailableError
	require.ErrorAs(t, err, &sue)
	assert.WithinDuration(t, before.Add(defaultPendingCooldown), sue.RetryAfter, 2*time.Second)

	// The cooldown rejects the next call locally.
	seen := atomic.LoadInt64(calls)
	_, err = client.authorizedGet(ctx, "/repos/o/r/stats/commit_activity")
	require.Error(t, err)
	assert.True(t, IsServiceUnavailable(err))
	assert.Equal(t, seen, atomic.LoadInt64(calls))

	// Other endpoints are unaffected.
	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
	_, err = client.authorizedGet(ctx, "/repos/o/r")
	assert.NoError(t, err)
}

func TestClient_AsyncPendingHonorsRetryAfter(t *testing.T) {
	client, server, calls := setupTestClient(t)
	ctx := context.Background()

	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusAccepted)
	})

	before := time.Now()
	_, err := client.authorizedGet(ctx, "/repos/o/r/stats/commit_activity")
	require.Error(t, err)
	var sue *ServiceUnavailableError
	require.ErrorAs(t, err, &sue)
	assert.WithinDuration(t, before.Add(7*time.Second), sue.RetryAfter, 2*time.Second)
}

func TestClient_AuthenticationFailure(t *testing.T) {
	client, server, calls := setupTestClient(t)
	ctx := context.Background()

	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	})

	_, err := client.authorizedGet(ctx, "/user")
	require.Error(t, err)
	assert.True(t, IsAuthenticationFailure(err))
	assert.False(t, IsRateLimitError(err))
}

func TestClient_BadStatus(t *testing.T) {
	client, server, calls := setupTestClient(t)
	ctx := context.Background()

	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"boom"}`))
	})

	_, err := client.authorizedGet(ctx, "/repos/o/r")
	require.Error(t, err)
	var bse *BadStatusError
	require.ErrorAs(t, err, &bse)
	assert.Equal(t, http.StatusInternalServerError, bse.StatusCode)
	assert.Equal(t, "boom", bse.Message)
}

func TestClient_SnapshotRecovery(t *testing.T) {
	client, server, calls := setupTestClient(t)
	ctx := context.Background()

	// Exhaust the budget with a reset in the past, so the next successful
	// observation clears the global flag.
	past := time.Now().Add(-time.Second)
	client.setGlobalRateLimit(past, "exhausted")

	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	_, err := client.authorizedGet(ctx, "/repos/o/r")
	require.NoError(t, err)

	until, msg := client.RateLimitState()
	assert.Nil(t, until)
	assert.Empty(t, msg)

	summary := client.DiagnosticsSummary()
	require.NotNil(t, summary.RESTRateLimit)
	assert.Equal(t, 4999, summary.RESTRateLimit.Remaining)
}

func TestClient_ClearCache(t *testing.T) {
	client, server, calls := setupTestClient(t)
	ctx := context.Background()

	setHandler(server, calls, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"e"`)
		w.Header().Set("X-RateLimit-Remaining", "10")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	_, err := client.authorizedGet(ctx, "/repos/o/r")
	require.NoError(t, err)
	client.cooldowns.set("/repos/o/r/stats", time.Now().Add(time.Minute))
	client.setGlobalRateLimit(time.Now().Add(time.Hour), "limited")

	client.ClearCache()

	summary := client.DiagnosticsSummary()
	assert.Zero(t, summary.CacheEntries)
	assert.Zero(t, summary.ActiveCooldowns)
	assert.Nil(t, summary.RESTRateLimit)
	until, _ := client.RateLimitState()
	assert.Nil(t, until)
}

func TestClient_MissingToken(t *testing.T) {
	client, server, calls := setupTestClient(t)
	client.tokens = StaticTokenProvider("")

	_, err := client.authorizedGet(context.Background(), "/repos/o/r")
	require.Error(t, err)
	assert.True(t, IsAuthenticationFailure(err))
	assert.Zero(t, atomic.LoadInt64(calls))
	_ = server
}
