package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/sse"
)

const maxErrorBody = 16 * 1024

// Client talks to a Dify-compatible chat API. The base URL and key come from
// the agent passed to each call, so one Client serves every chat agent.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a new chat client. timeout bounds a whole call,
// including the time spent streaming.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Stream posts req in streaming mode and consumes the event stream.
func (c *Client) Stream(ctx context.Context, agent domain.AgentConfig, req *domain.ChatRequest, onEvent sse.EventFunc, onError sse.ErrorFunc) sse.Termination {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body := *req
	body.ResponseMode = domain.ResponseModeStreaming
	resp, err := c.post(ctx, agent, "/chat-messages", &body, "text/event-stream")
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return sse.Failed
	}
	defer resp.Body.Close()

	log.Info(ctx,
		log.KV{K: "msg", V: "chat stream opened"},
		log.KV{K: "agent", V: agent.ID},
		log.KV{K: "conversation_id", V: req.ConversationID},
	)
	term := sse.Consume(ctx, resp.Body, onEvent, onError)
	log.Info(ctx,
		log.KV{K: "msg", V: "chat stream closed"},
		log.KV{K: "agent", V: agent.ID},
		log.KV{K: "termination", V: term.String()},
	)
	return term
}

// Send posts req in blocking mode.
func (c *Client) Send(ctx context.Context, agent domain.AgentConfig, req *domain.ChatRequest) (*domain.ChatCompletionResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body := *req
	body.ResponseMode = domain.ResponseModeBlocking
	resp, err := c.post(ctx, agent, "/chat-messages", &body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Stop posts to the task stop endpoint.
func (c *Client) Stop(ctx context.Context, agent domain.AgentConfig, taskID, user string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	path := "/chat-messages/" + url.PathEscape(taskID) + "/stop"
	resp, err := c.post(ctx, agent, path, map[string]string{"user": user}, "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// post sends a JSON body and returns the response when the status is 2xx.
// Transport failures are returned as *domain.TransportError and non-2xx
// responses as *domain.HTTPStatusError.
func (c *Client) post(ctx context.Context, agent domain.AgentConfig, path string, payload any, accept string) (*http.Response, error) {
	if agent.APIURL == "" {
		return nil, fmt.Errorf("agent %s has no api url configured", agent.ID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(agent.APIURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if agent.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+agent.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Err: err, Timeout: domain.IsTimeout(err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		text, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		body := string(text)
		if readErr != nil || body == "" {
			body = "No error text available"
		}
		log.Warn(ctx,
			log.KV{K: "msg", V: "chat upstream returned error status"},
			log.KV{K: "agent", V: agent.ID},
			log.KV{K: "status", V: resp.StatusCode},
		)
		return nil, &domain.HTTPStatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode), Body: body}
	}
	return resp, nil
}
