// Package sse reassembles server-sent event streams from the chat upstream
// into typed stream events.
package sse

import (
	"context"
	"encoding/json"
	"strings"

	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

const (
	frameSeparator = "\n\n"
	dataPrefix     = "data: "
)

// Parser splits text chunks into frames and decodes their data lines. A
// Parser belongs to one stream at a time; call Reset before reusing it.
type Parser struct {
	buf string
}

// NewParser creates an empty parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse appends chunk to the buffer and returns the events of every frame
// completed by it, in order. The trailing partial frame stays buffered.
// Frames with invalid JSON are logged and skipped.
func (p *Parser) Parse(ctx context.Context, chunk string) []domain.StreamEvent {
	p.buf += chunk
	if strings.Contains(p.buf, "\r\n") {
		p.buf = strings.ReplaceAll(p.buf, "\r\n", "\n")
	}

	parts := strings.Split(p.buf, frameSeparator)
	p.buf = parts[len(parts)-1]

	var events []domain.StreamEvent
	for _, frame := range parts[:len(parts)-1] {
		event, ok, err := decodeFrame(frame)
		if err != nil {
			log.Warn(ctx, log.KV{K: "msg", V: "skipping malformed sse frame"}, log.KV{K: "err", V: err.Error()})
			continue
		}
		if ok {
			events = append(events, event)
		}
	}
	return events
}

// Buffered returns the pending partial frame.
func (p *Parser) Buffered() string {
	return p.buf
}

// Reset drops any buffered partial frame.
func (p *Parser) Reset() {
	p.buf = ""
}

// decodeFrame decodes the first data line of a frame. Frames without a
// data line (comments, keep-alives) report ok=false and no error.
func decodeFrame(frame string) (domain.StreamEvent, bool, error) {
	if strings.TrimSpace(frame) == "" {
		return domain.StreamEvent{}, false, nil
	}
	for _, line := range strings.Split(frame, "\n") {
		data, found := strings.CutPrefix(line, dataPrefix)
		if !found {
			continue
		}
		if data == "" {
			return domain.StreamEvent{}, false, nil
		}
		var event domain.StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return domain.StreamEvent{}, false, &domain.MalformedFrameError{Data: data, Err: err}
		}
		return event, true, nil
	}
	return domain.StreamEvent{}, false, nil
}
