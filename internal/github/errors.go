package github

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InvalidHostError indicates a malformed or unusable API base URL.
type InvalidHostError struct {
	Host string
}

func (e *InvalidHostError) Error() string {
	return fmt.Sprintf("invalid API host: %q", e.Host)
}

// RateLimitError indicates the API budget is exhausted. Until is the
// earliest time a retry can succeed.
type RateLimitError struct {
	Until   time.Time
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API rate limit exceeded, resets at %s", e.Until.Format(time.RFC3339))
}

// ServiceUnavailableError indicates the endpoint is in a cooldown window,
// either because the remote is still computing the resource or because a
// prior throttle response told us to back off.
type ServiceUnavailableError struct {
	RetryAfter time.Time
	Message    string
}

func (e *ServiceUnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("endpoint unavailable, retry after %s", e.RetryAfter.Format(time.RFC3339))
}

// BadStatusError indicates a response code outside the expected set for a
// call.
type BadStatusError struct {
	StatusCode int
	Message    string
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError indicates the bearer token was rejected. Callers use
// this to trigger re-authentication rather than a plain error display.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication failed: %s", e.Message)
	}
	return "authentication failed"
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsServiceUnavailable checks if an error is an endpoint cooldown error
func IsServiceUnavailable(err error) bool {
	var sue *ServiceUnavailableError
	return errors.As(err, &sue)
}

// IsAuthenticationFailure reports whether an error means the token is
// invalid or expired. A 401 always qualifies; GitHub also phrases token
// problems as "bad credentials" in error bodies.
func IsAuthenticationFailure(err error) bool {
	var ae *AuthenticationError
	if errors.As(err, &ae) {
		return true
	}
	var bse *BadStatusError
	if errors.As(err, &bse) {
		return bse.StatusCode == 401 || strings.Contains(strings.ToLower(bse.Message), "bad credentials")
	}
	return false
}
