package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownAgent is returned when an agent id is not configured.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrBlocked is returned when the outbound policy denies a call.
	ErrBlocked = errors.New("blocked by policy")
	// ErrInvalidInput is returned when a request is missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultStreamErrorMessage is used when an error event carries no message.
const DefaultStreamErrorMessage = "Stream error"

// MalformedFrameError is a frame whose data line is not valid JSON. It is
// logged and skipped; it never terminates a stream.
type MalformedFrameError struct {
	Data string
	Err  error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed sse frame %q: %v", e.Data, e.Err)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Err
}

// UpstreamError is an error event reported by the chat upstream.
type UpstreamError struct {
	Message string
	Code    string
	Status  int
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
	}
	return e.Message
}

// NewUpstreamError builds an UpstreamError from an error-kind event.
func NewUpstreamError(event StreamEvent) *UpstreamError {
	msg := event.ErrorMessage
	if msg == "" {
		msg = DefaultStreamErrorMessage
	}
	return &UpstreamError{Message: msg, Code: event.ErrorCode, Status: event.Status}
}

// TransportError is a failure of the underlying connection.
type TransportError struct {
	Err error
	// Timeout is set when the failure was a deadline or an abort rather
	// than a generic network failure.
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transport timeout: %v", e.Err)
	}
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d, statusText: %s, body: %s", e.StatusCode, e.Status, e.Body)
}

// RequestError is the classified failure outcome of a RetryableRequest.
type RequestError struct {
	Kind     FailureKind
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%s) after %d attempt(s) in %v: %v", e.Kind, e.Attempts, e.Elapsed, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusCode returns the upstream status of an http_error failure, or 0.
func (e *RequestError) StatusCode() int {
	var httpErr *HTTPStatusError
	if errors.As(e.Err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsTimeout reports whether err is a deadline, an abort or a network
// timeout rather than a generic transport failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
