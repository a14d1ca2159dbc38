package domain

import (
	"encoding/json"
	"net/http"
	"time"
)

// RetryableRequest describes one logical outbound call. It is not modified
// by the client that executes it.
type RetryableRequest struct {
	URL         string
	Method      string
	Header      http.Header
	Body        []byte
	Timeout     time.Duration // per attempt
	MaxAttempts int
	BackoffBase time.Duration
}

// Response is the successful outcome of a RetryableRequest.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	// IsJSON is set when Body parsed as JSON; otherwise Body is passed
	// through as text.
	IsJSON   bool
	Attempts int
	Elapsed  time.Duration
}

// JSON returns the body as raw JSON, quoting it as a JSON string when the
// upstream sent plain text.
func (r *Response) JSON() json.RawMessage {
	if r.IsJSON {
		return json.RawMessage(r.Body)
	}
	quoted, _ := json.Marshal(string(r.Body))
	return quoted
}

// SendMessageInput is the service-level input for a chat send.
type SendMessageInput struct {
	AgentID        string         `json:"agent_id"`
	Query          string         `json:"query"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user,omitempty"`
	ResponseMode   ResponseMode   `json:"response_mode,omitempty"`
	Inputs         map[string]any `json:"inputs,omitempty"`
	Files          []FileInput    `json:"files,omitempty"`
}

// CRMQueryRequest is the body accepted by the CRM lookup route.
type CRMQueryRequest struct {
	AgentID  string `json:"agent_id"`
	Question string `json:"question"`
}

// CRMQueryResponse wraps the upstream CRM reply.
type CRMQueryResponse struct {
	Response string          `json:"response"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Attempts int             `json:"attempts"`
	Duration int64           `json:"duration_ms"`
}

// CRMHealthRequest is the body accepted by the CRM health route.
type CRMHealthRequest struct {
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// StopRequest asks the chat upstream to stop a running task.
type StopRequest struct {
	AgentID string `json:"agent_id"`
	User    string `json:"user,omitempty"`
}

// ErrorResponse is the JSON error body returned by the HTTP routes.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details *ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail carries diagnostics that are only exposed outside production.
type ErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	Timestamp string `json:"timestamp"`
}
