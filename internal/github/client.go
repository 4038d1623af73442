package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/repopulse/repopulse/internal/config"
)

const (
	// defaultRateLimitBackoff is used when a throttled response carries no
	// reset metadata.
	defaultRateLimitBackoff = 60 * time.Second

	// defaultPendingCooldown is used when an accepted/processing response
	// carries no Retry-After hint.
	defaultPendingCooldown = 90 * time.Second

	acceptHeader = "application/vnd.github+json"
)

// TokenProvider supplies the bearer token for outbound calls. The client
// never refreshes or stores tokens itself.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider wraps a fixed personal access token.
type StaticTokenProvider string

func (p StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if p == "" {
		return "", &AuthenticationError{Message: "no token configured"}
	}
	return string(p), nil
}

// TokenSourceProvider adapts an oauth2.TokenSource, so refreshing sources
// from a login flow plug in directly.
type TokenSourceProvider struct {
	Source oauth2.TokenSource
}

func (p TokenSourceProvider) Token(ctx context.Context) (string, error) {
	tok, err := p.Source.Token()
	if err != nil {
		return "", &AuthenticationError{Message: err.Error()}
	}
	return tok.AccessToken, nil
}

// Client is the synchronization client for the GitHub REST API. All
// outbound calls go through authorizedGet, which consults the conditional
// cache and the per-endpoint cooldown tracker, and maintains the latest
// rate limit snapshot. It is safe for arbitrary concurrent callers.
type Client struct {
	httpClient *http.Client
	tokens     TokenProvider
	logger     logrus.FieldLogger
	baseURL    *url.URL
	throttle   *rate.Limiter

	cache     *conditionalCache
	cooldowns *backoffTracker

	// state guards the shared rate limit view.
	state struct {
		mu           sync.Mutex
		snapshot     *RateLimitSnapshot
		limitedUntil time.Time
		limitedMsg   string
	}

	enrichment *EnrichmentClient
}

// ClientOption allows configuring the client
type ClientOption func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEnrichment attaches the secondary GraphQL channel so its snapshot
// shows up in diagnostics.
func WithEnrichment(e *EnrichmentClient) ClientOption {
	return func(c *Client) {
		c.enrichment = e
	}
}

// NewClient creates a new synchronization client for the given API base.
func NewClient(cfg *config.GitHubConfig, tokens TokenProvider, logger logrus.FieldLogger, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(cfg.APIBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &InvalidHostError{Host: cfg.APIBaseURL}
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		tokens:     tokens,
		logger:     logger,
		baseURL:    base,
		cache:      newConditionalCache(),
		cooldowns:  newBackoffTracker(),
	}
	if cfg.Throttle.RequestsPerSecond > 0 {
		burst := cfg.Throttle.Burst
		if burst < 1 {
			burst = 1
		}
		client.throttle = rate.NewLimiter(rate.Limit(cfg.Throttle.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// apiResponse is the result of a successful authorizedGet: the body (from
// the network or the cache) plus the response headers for callers that
// need pagination metadata.
type apiResponse struct {
	Body       []byte
	Header     http.Header
	StatusCode int
	// FromCache is set when the server answered not-modified and the body
	// was served verbatim from the conditional cache.
	FromCache bool
}

// authorizedGet is the single choke point for outbound REST calls.
//
// Per call: fail fast if the whole surface is known rate-limited or the
// endpoint is in a cooldown window; otherwise issue a conditional GET and
// classify the response, updating cache, cooldowns and the rate limit
// snapshot as a side effect. allowed lists the success codes the caller
// expects; anything else surfaces as a typed error.
func (c *Client) authorizedGet(ctx context.Context, endpoint string, allowed ...int) (*apiResponse, error) {
	if until, msg, limited := c.globalRateLimit(); limited {
		return nil, &RateLimitError{Until: until, Message: msg}
	}

	if until, active := c.cooldowns.cooldown(endpoint); active {
		return nil, &ServiceUnavailableError{
			RetryAfter: until,
			Message:    fmt.Sprintf("%s cooling down until %s", endpoint, until.Format(time.RFC3339)),
		}
	}

	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, err
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, &InvalidHostError{Host: endpoint}
	}
	reqURL := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)

	entry, hasCache := c.cache.cached(endpoint)
	if hasCache && entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	snap := parseRateLimit(resp.Header)
	if snap != nil {
		c.observeSnapshot(snap)
	}
	c.logCall(endpoint, resp.StatusCode, snap, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if !hasCache {
			// A 304 without a stored body cannot be decoded.
			return nil, &BadStatusError{StatusCode: resp.StatusCode, Message: "not modified but no cached body"}
		}
		return &apiResponse{Body: entry.Body, Header: resp.Header, StatusCode: resp.StatusCode, FromCache: true}, nil

	case resp.StatusCode == http.StatusAccepted:
		// The remote is computing this resource in the background; back off
		// instead of hammering it.
		until := retryAfterFrom(resp.Header, defaultPendingCooldown)
		c.cooldowns.set(endpoint, until)
		return nil, &ServiceUnavailableError{
			RetryAfter: until,
			Message:    fmt.Sprintf("%s still being generated, retry after %s", endpoint, until.Format(time.RFC3339)),
		}

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		until := resetTimeFrom(resp.Header, defaultRateLimitBackoff)
		msg := fmt.Sprintf("API rate limit exceeded, resets at %s", until.Format(time.Kitchen))
		c.setGlobalRateLimit(until, msg)
		c.cooldowns.set(endpoint, until)
		return nil, &RateLimitError{Until: until, Message: msg}

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthenticationError{Message: apiErrorMessage(body)}
	}

	if !statusAllowed(resp.StatusCode, allowed) {
		return nil, &BadStatusError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		c.cache.save(endpoint, etag, body)
	}

	return &apiResponse{Body: body, Header: resp.Header, StatusCode: resp.StatusCode}, nil
}

// getJSON performs an authorizedGet and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, endpoint string, v interface{}, allowed ...int) error {
	resp, err := c.authorizedGet(ctx, endpoint, allowed...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func statusAllowed(code int, allowed []int) bool {
	if len(allowed) == 0 {
		return code == http.StatusOK
	}
	for _, ok := range allowed {
		if code == ok {
			return true
		}
	}
	return false
}

// apiErrorMessage pulls the "message" field out of a GitHub error body,
// falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) logCall(endpoint string, status int, snap *RateLimitSnapshot, duration time.Duration) {
	if c.logger == nil {
		return
	}
	fields := logrus.Fields{
		"endpoint":    endpoint,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}
	if snap != nil {
		fields["rate_limit"] = snap.Limit
		fields["rate_remaining"] = snap.Remaining
		fields["rate_used"] = snap.Used
		if !snap.Reset.IsZero() {
			fields["rate_reset"] = snap.Reset.Format(time.RFC3339)
		}
		if snap.Resource != "" {
			fields["rate_resource"] = snap.Resource
		}
	}
	c.logger.WithFields(fields).Debug("GitHub API call")
}

// observeSnapshot records the latest rate limit view and clears a stale
// global rate-limited flag once the budget is visibly replenished.
func (c *Client) observeSnapshot(snap *RateLimitSnapshot) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.snapshot = snap
	if snap.Remaining > 0 && !c.state.limitedUntil.IsZero() && time.Now().After(c.state.limitedUntil) {
		c.state.limitedUntil = time.Time{}
		c.state.limitedMsg = ""
	}
}

func (c *Client) setGlobalRateLimit(until time.Time, msg string) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.limitedUntil = until
	c.state.limitedMsg = msg
}

func (c *Client) globalRateLimit() (time.Time, string, bool) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	if c.state.limitedUntil.IsZero() || time.Now().After(c.state.limitedUntil) {
		return time.Time{}, "", false
	}
	return c.state.limitedUntil, c.state.limitedMsg, true
}

// RateLimitState reports the currently known rate-limited-until time and
// message, if the budget is exhausted.
func (c *Client) RateLimitState() (*time.Time, string) {
	until, msg, limited := c.globalRateLimit()
	if !limited {
		return nil, ""
	}
	return &until, msg
}

// ClearCache drops all cached bodies, cooldowns and rate limit state,
// e.g. on logout.
func (c *Client) ClearCache() {
	c.cache.clear()
	c.cooldowns.clear()
	c.state.mu.Lock()
	c.state.snapshot = nil
	c.state.limitedUntil = time.Time{}
	c.state.limitedMsg = ""
	c.state.mu.Unlock()
}

// DiagnosticsSummary describes the client's internal state for debugging.
type DiagnosticsSummary struct {
	CacheEntries    int                `json:"cache_entries"`
	ActiveCooldowns int                `json:"active_cooldowns"`
	RESTRateLimit   *RateLimitSnapshot `json:"rest_rate_limit,omitempty"`
	GraphQLLimit    *RateLimitSnapshot `json:"graphql_rate_limit,omitempty"`
	RateLimitedTill *time.Time         `json:"rate_limited_until,omitempty"`
}

// DiagnosticsSummary returns cache/cooldown counts and the last rate limit
// snapshots for both API channels.
func (c *Client) DiagnosticsSummary() DiagnosticsSummary {
	summary := DiagnosticsSummary{
		CacheEntries:    c.cache.size(),
		ActiveCooldowns: c.cooldowns.active(),
	}
	c.state.mu.Lock()
	summary.RESTRateLimit = c.state.snapshot
	if !c.state.limitedUntil.IsZero() && time.Now().Before(c.state.limitedUntil) {
		until := c.state.limitedUntil
		summary.RateLimitedTill = &until
	}
	c.state.mu.Unlock()
	if c.enrichment != nil {
		summary.GraphQLLimit = c.enrichment.Snapshot()
	}
	return summary
}
