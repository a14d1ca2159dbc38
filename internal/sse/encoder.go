package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// Encoder writes stream events as SSE frames and flushes after each one
// when the writer supports it.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	flusher, _ := w.(http.Flusher)
	return &Encoder{w: w, flusher: flusher}
}

// Encode writes one event frame.
func (e *Encoder) Encode(event domain.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "%s%s%s", dataPrefix, data, frameSeparator); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// EncodeError writes err as an error-kind event so that downstream parsers
// terminate the stream the same way the upstream would.
func (e *Encoder) EncodeError(err error, code string) error {
	event := domain.StreamEvent{Kind: domain.EventKindError, ErrorMessage: err.Error(), ErrorCode: code}
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		event.ErrorMessage = upstream.Message
		event.Status = upstream.Status
		if upstream.Code != "" {
			event.ErrorCode = upstream.Code
		}
	}
	return e.Encode(event)
}
