// Package external is the boundary between Weather2Go and third-party HTTP
// APIs. Outbound calls go through BaseClient, which stamps every request with
// the service User-Agent and the caller's request ID, and runs it under a
// circuit breaker.
//
// BaseClient makes exactly one attempt per call. It never retries.
package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"weather2go/internal/types"
)

// breakerInterval is the cyclic period after which a closed breaker clears
// its failure counts.
const breakerInterval = 60 * time.Second

// breakerOpenTimeout is how long an open breaker rejects calls before
// letting one probe through.
const breakerOpenTimeout = 30 * time.Second

// BaseClient wraps an *http.Client and a circuit breaker. Provider clients
// (the weather client) embed it to share request stamping and error mapping.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient. The breaker opens after tripAfter
// consecutive failures (transport errors, 429 and 5xx responses); a tripAfter
// of zero disables tripping entirely.
func NewBaseClient(httpClient *http.Client, breakerName string, tripAfter uint32, userAgent string) *BaseClient {
	return NewBaseClientWithBreaker(httpClient, NewBreaker(breakerName, tripAfter), userAgent)
}

// NewBaseClientWithBreaker creates a BaseClient with a caller-provided circuit
// breaker.
func NewBaseClientWithBreaker(httpClient *http.Client, breaker *gobreaker.CircuitBreaker[*http.Response], userAgent string) *BaseClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		userAgent: userAgent,
	}
}

// NewBreaker builds the circuit breaker used by NewBaseClient.
func NewBreaker(name string, tripAfter uint32) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return tripAfter > 0 && counts.ConsecutiveFailures >= tripAfter
		},
	})
}

// Do executes req once.
//
// 2xx, 3xx and 4xx responses other than 429 are returned as-is and the caller
// owns the body. Transport failures, 429 and 5xx responses and an open
// breaker are returned as *types.AppError with an upstream_* code; the
// response body is closed in that case.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if reqID := types.GetRequestID(req.Context()); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})
	if err == nil {
		return resp, nil
	}

	if resp != nil {
		resp.Body.Close()
	}
	return nil, mapError(resp, err)
}

// State reports the breaker state, for health probes and logs.
func (c *BaseClient) State() gobreaker.State {
	return c.breaker.State()
}

// mapError translates HTTP-level failures into AppErrors.
func mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; upstream service unavailable",
			err,
		)
	}

	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
		case resp.StatusCode >= 500:
			return types.NewAppError(
				types.ErrCodeUpstreamUnavailable,
				fmt.Sprintf("upstream returned %d", resp.StatusCode),
				err,
			)
		}
	}

	return types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", err)
}
