package sse

import (
	"context"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

const readBufferSize = 4096

// Termination reports how a stream ended.
type Termination int

const (
	// EndOfStream means the body ended without a message_end event.
	EndOfStream Termination = iota
	// EndOfMessage means a message_end event was delivered.
	EndOfMessage
	// Failed means the error sink was invoked.
	Failed
)

func (t Termination) String() string {
	switch t {
	case EndOfStream:
		return "end_of_stream"
	case EndOfMessage:
		return "end_of_message"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventFunc receives each stream event in order. Returning an error stops
// the stream and reports that error to the ErrorFunc.
type EventFunc func(event domain.StreamEvent) error

// ErrorFunc receives the error that terminated a stream. It is called at
// most once per stream.
type ErrorFunc func(err error)

// Consume reads body chunk by chunk and dispatches the decoded events.
// Reading stops at the first error event, at message_end, on a read
// failure, when onEvent fails, or when ctx is done. Errors are reported
// only through onError; after Consume returns no sink is called again.
func Consume(ctx context.Context, body io.Reader, onEvent EventFunc, onError ErrorFunc) Termination {
	parser := NewParser()
	defer parser.Reset()

	fail := func(err error) Termination {
		if onError != nil {
			onError(err)
		}
		return Failed
	}

	// The UTF-8 decoder holds back a rune split across reads until the
	// next read completes it.
	text := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return fail(&domain.TransportError{Err: err, Timeout: true})
		}

		n, err := text.Read(buf)
		if n > 0 {
			for _, event := range parser.Parse(ctx, string(buf[:n])) {
				if event.Kind == domain.EventKindError {
					return fail(domain.NewUpstreamError(event))
				}
				if onEvent != nil {
					if sinkErr := onEvent(event); sinkErr != nil {
						return fail(sinkErr)
					}
				}
				if event.Kind == domain.EventKindMessageEnd {
					return EndOfMessage
				}
			}
		}

		if errors.Is(err, io.EOF) {
			return EndOfStream
		}
		if err != nil {
			return fail(&domain.TransportError{Err: err, Timeout: domain.IsTimeout(err)})
		}
	}
}
