// Package httpretry wraps an HTTP client with retries, exponential backoff
// and jitter for outbound webhook deliveries.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/ignite/region-insights/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic using exponential backoff and jitter.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	minDelay   time.Duration
}

// Option customises a RetryClient.
type Option func(*RetryClient)

// WithBackoff overrides the base and maximum backoff delays. A base below
// the minimum delay also becomes the new minimum.
func WithBackoff(base, max time.Duration) Option {
	return func(rc *RetryClient) {
		rc.baseDelay = base
		rc.maxDelay = max
		if base < rc.minDelay {
			rc.minDelay = base
		}
	}
}

// NewRetryClient creates a new RetryClient that wraps the given HTTPDoer.
// If client is nil, a default http.Client with 30s timeout is used.
// maxRetries is the number of retry attempts after the initial request (default 3).
func NewRetryClient(client HTTPDoer, maxRetries int, opts ...Option) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	rc := &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,
		minDelay:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Do executes the request, retrying on 429/5xx gateway statuses and on
// transport errors. Client errors and context cancellation are returned at
// once. The final attempt's response is returned as-is so callers can read it.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		// Stop before dialing if the caller already gave up.
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		// No wait before the first attempt.
		if attempt > 0 {
			// A consumed body must be rewound for the next attempt.
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.calculateDelay(attempt)
			logger.Warn("http retry",
				"attempt", attempt, "max", rc.maxRetries,
				"method", req.Method, "host", req.URL.Host, "wait", delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			// Cancelled or expired: retrying cannot succeed.
			if req.Context().Err() != nil {
				return nil, err
			}
			// Transport failure (refused, reset, timeout): try again.
			continue
		}

		// Success and 4xx responses go straight back to the caller.
		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// Out of attempts: hand over the last response unread so the
		// caller can report its status and body.
		if attempt == rc.maxRetries {
			return resp, nil
		}

		// Drain so the keep-alive connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// calculateDelay returns the wait before retry number attempt (1-based).
// It is full jitter: a uniform draw from [0, min(maxDelay, baseDelay*2^(attempt-1))),
// floored at minDelay.
func (rc *RetryClient) calculateDelay(attempt int) time.Duration {
	// Doubles per attempt: base, 2*base, 4*base, ...
	expDelay := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(rc.maxDelay) {
		expDelay = float64(rc.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)

	// The floor keeps a zero draw from turning into a hot loop.
	if jittered < rc.minDelay {
		jittered = rc.minDelay
	}
	return jittered
}

// isRetryableStatus reports whether statusCode is a transient failure worth
// another attempt. Other 4xx codes (400, 401, 403, 404, ...) are the caller's
// problem and are never retried; neither is 501 Not Implemented.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests: // 429, receiver is rate limiting
		return true
	case http.StatusInternalServerError: // 500
		return true
	case http.StatusBadGateway: // 502
		return true
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	default:
		return false
	}
}
