package github

import (
	"net/http"
	"strconv"
	"time"
)

const (
	// Primary rate limit header convention.
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateUsed      = "X-RateLimit-Used"
	headerRateReset     = "X-RateLimit-Reset"
	headerRateResource  = "X-RateLimit-Resource"

	// Alternate convention used by some deployments and proxies.
	headerAltRateLimit     = "X-Rate-Limit-Limit"
	headerAltRateRemaining = "X-Rate-Limit-Remaining"
	headerAltRateUsed      = "X-Rate-Limit-Used"
	headerAltRateReset     = "X-Rate-Limit-Reset"
	headerAltRateResource  = "X-Rate-Limit-Resource"

	headerRetryAfter = "Retry-After"
)

// RateLimitSnapshot is the most recently observed quota state for one API
// surface. All fields are best-effort; Reset is the zero time when the
// server did not report one.
type RateLimitSnapshot struct {
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	Used       int       `json:"used"`
	Reset      time.Time `json:"reset"`
	Resource   string    `json:"resource"`
	ObservedAt time.Time `json:"observed_at"`
}

// parseRateLimit extracts rate limit metadata from response headers. It
// returns nil when neither header convention carries a rate limit identity
// (a limit or remaining count). It never fails: unparsable individual
// fields are simply left at their zero values.
func parseRateLimit(h http.Header) *RateLimitSnapshot {
	limitKey, remainingKey, usedKey, resetKey, resourceKey :=
		headerRateLimit, headerRateRemaining, headerRateUsed, headerRateReset, headerRateResource
	if h.Get(limitKey) == "" && h.Get(remainingKey) == "" {
		limitKey, remainingKey, usedKey, resetKey, resourceKey =
			headerAltRateLimit, headerAltRateRemaining, headerAltRateUsed, headerAltRateReset, headerAltRateResource
		if h.Get(limitKey) == "" && h.Get(remainingKey) == "" {
			return nil
		}
	}

	snap := &RateLimitSnapshot{
		Resource:   h.Get(resourceKey),
		ObservedAt: time.Now(),
	}
	if v, err := strconv.Atoi(h.Get(limitKey)); err == nil {
		snap.Limit = v
	}
	if v, err := strconv.Atoi(h.Get(remainingKey)); err == nil {
		snap.Remaining = v
	}
	if v, err := strconv.Atoi(h.Get(usedKey)); err == nil {
		snap.Used = v
	}
	if v, err := strconv.ParseInt(h.Get(resetKey), 10, 64); err == nil {
		snap.Reset = time.Unix(v, 0)
	}
	return snap
}

// resetTimeFrom derives the retry deadline for a throttled response: the
// reset timestamp when present, otherwise Retry-After seconds, otherwise
// the provided fallback from now.
func resetTimeFrom(h http.Header, fallback time.Duration) time.Time {
	if snap := parseRateLimit(h); snap != nil && !snap.Reset.IsZero() {
		return snap.Reset
	}
	if seconds, err := strconv.Atoi(h.Get(headerRetryAfter)); err == nil && seconds > 0 {
		return time.Now().Add(time.Duration(seconds) * time.Second)
	}
	return time.Now().Add(fallback)
}

// retryAfterFrom derives a cooldown deadline for an async-pending response
// from the Retry-After header, or the fallback duration when absent.
func retryAfterFrom(h http.Header, fallback time.Duration) time.Time {
	if seconds, err := strconv.Atoi(h.Get(headerRetryAfter)); err == nil && seconds > 0 {
		return time.Now().Add(time.Duration(seconds) * time.Second)
	}
	return time.Now().Add(fallback)
}
