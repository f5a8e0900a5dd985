package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

var (
	ErrRateLimited   = errors.New("rate limited by provider")
	ErrEmptyResponse = errors.New("empty response from provider")
	ErrCircuitOpen   = errors.New("llm circuit breaker is open")
)

var rateLimitPattern = regexp.MustCompile(`(?i)rate.?limit|too many requests|\b429\b|quota exceeded`)

// non-2xx answer from a provider
type StatusError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// reports whether err signals provider throttling: an HTTP 429, an error
// wrapping ErrRateLimited, or a message that reads like a rate-limit notice
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	// local deadlines and cancellations are never throttling
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return rateLimitPattern.MatchString(err.Error())
}
