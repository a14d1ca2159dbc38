// Package chat provides clients for the streaming chat upstream.
package chat

import (
	"context"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/sse"
)

// ChatClient defines the chat upstream operations.
type ChatClient interface {
	// Stream sends a streaming chat request. Events are delivered to onEvent
	// in order and the terminating error, if any, to onError.
	Stream(ctx context.Context, agent domain.AgentConfig, req *domain.ChatRequest, onEvent sse.EventFunc, onError sse.ErrorFunc) sse.Termination

	// Send sends a blocking chat request.
	Send(ctx context.Context, agent domain.AgentConfig, req *domain.ChatRequest) (*domain.ChatCompletionResponse, error)

	// Stop asks the upstream to stop a running generation.
	Stop(ctx context.Context, agent domain.AgentConfig, taskID, user string) error
}

// Ensure Client implements ChatClient interface.
var _ ChatClient = (*Client)(nil)
