// Package httpretry performs one logical outbound HTTP call against a flaky
// upstream with a per-attempt deadline, bounded retries and exponential
// backoff, and classifies the final failure.
package httpretry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

const (
	// ErrorBodyPlaceholder replaces the body of a failed response that
	// could not be read.
	ErrorBodyPlaceholder = "No error text available"

	maxErrorBody = 16 * 1024
)

// State is a step of the request state machine.
type State string

const (
	StateIdle       State = "idle"
	StateAttempting State = "attempting"
	StateRetryWait  State = "retry_wait"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// Observer is notified on every state transition.
type Observer func(state State, attempt int)

// Client executes RetryableRequests. It holds no per-request state and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Deadlines come from the
// request, so the client should not set its own Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter gates every attempt on l.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithObserver registers a state transition observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a new resilient request client.
func NewClient(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs req until it succeeds, fails with an http_error, runs out of
// attempts, or ctx is done. Only network and timeout failures are retried.
// Failures are returned as *domain.RequestError.
func (c *Client) Do(ctx context.Context, req domain.RetryableRequest) (*domain.Response, error) {
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	c.transition(StateIdle, 0)
	start := time.Now()
	var (
		lastErr  error
		attempts int
	)
	for attempts < maxAttempts {
		attempts++
		c.transition(StateAttempting, attempts)

		resp, err := c.attempt(ctx, req, attempts)
		if err == nil {
			resp.Attempts = attempts
			resp.Elapsed = time.Since(start)
			c.transition(StateSuccess, attempts)
			return resp, nil
		}
		lastErr = err

		var limitErr *limitError
		if Classify(err) == domain.FailureHTTPError || errors.As(err, &limitErr) || ctx.Err() != nil || attempts >= maxAttempts {
			break
		}

		wait := Backoff(req.BackoffBase, attempts)
		log.Warn(ctx,
			log.KV{K: "msg", V: "outbound request failed, retrying"},
			log.KV{K: "url", V: redactURL(req.URL)},
			log.KV{K: "attempt", V: attempts},
			log.KV{K: "max_attempts", V: maxAttempts},
			log.KV{K: "backoff_ms", V: wait.Milliseconds()},
			log.KV{K: "err", V: err.Error()},
		)
		c.transition(StateRetryWait, attempts)
		if err := waitForRetry(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	c.transition(StateFailed, attempts)
	failure := &domain.RequestError{
		Kind:     Classify(lastErr),
		Attempts: attempts,
		Elapsed:  time.Since(start),
		Err:      lastErr,
	}
	log.Error(ctx, failure,
		log.KV{K: "msg", V: "outbound request failed"},
		log.KV{K: "url", V: redactURL(req.URL)},
		log.KV{K: "kind", V: string(failure.Kind)},
		log.KV{K: "attempts", V: attempts},
		log.KV{K: "duration_ms", V: failure.Elapsed.Milliseconds()},
	)
	return nil, failure
}

func (c *Client) attempt(ctx context.Context, req domain.RetryableRequest, n int) (*domain.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportError{Err: &limitError{err: err}, Timeout: true}
		}
	}

	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if req.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	log.Info(ctx,
		log.KV{K: "msg", V: "outbound response"},
		log.KV{K: "url", V: redactURL(req.URL)},
		log.KV{K: "status", V: resp.StatusCode},
		log.KV{K: "attempt", V: n},
		log.KV{K: "duration_ms", V: time.Since(started).Milliseconds()},
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := ErrorBodyPlaceholder
		if b, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); readErr == nil {
			text = string(b)
		}
		return nil, &domain.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       text,
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &domain.Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        payload,
		IsJSON:      json.Valid(payload),
	}, nil
}

func (c *Client) transition(state State, attempt int) {
	if c.observer != nil {
		c.observer(state, attempt)
	}
}

// limitError is a rate limiter wait that cannot complete before the
// caller's deadline. Later attempts would fail the same way.
type limitError struct {
	err error
}

func (e *limitError) Error() string {
	return fmt.Sprintf("rate limit wait: %v", e.err)
}

func (e *limitError) Unwrap() error {
	return e.err
}

// Classify maps an attempt error to its failure kind.
func Classify(err error) domain.FailureKind {
	var httpErr *domain.HTTPStatusError
	switch {
	case errors.As(err, &httpErr):
		return domain.FailureHTTPError
	case domain.IsTimeout(err):
		return domain.FailureTimeout
	default:
		return domain.FailureNetwork
	}
}

// redactURL drops the query string, which may carry user questions.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
