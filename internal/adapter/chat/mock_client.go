package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/sse"
)

// MockClient is a mock implementation of ChatClient for local runs and tests.
// It echoes the query back as a stream of word fragments.
type MockClient struct {
	// Delay is slept between fragments.
	Delay time.Duration
}

// NewMockClient creates a new mock chat client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements ChatClient interface.
var _ ChatClient = (*MockClient)(nil)

// Stream emits one message event per word of the reply, then message_end.
func (m *MockClient) Stream(ctx context.Context, agent domain.AgentConfig, req *domain.ChatRequest, onEvent sse.EventFunc, onError sse.ErrorFunc) sse.Termination {
	ids := m.ids(req)
	for _, fragment := range m.fragments(req) {
		if m.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(m.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			if onError != nil {
				onError(&domain.TransportError{Err: err, Timeout: true})
			}
			return sse.Failed
		}
		event := domain.StreamEvent{
			Kind:           domain.EventKindMessage,
			MessageID:      ids.message,
			ConversationID: ids.conversation,
			TaskID:         ids.task,
			Answer:         fragment,
			CreatedAt:      time.Now().Unix(),
		}
		if err := onEvent(event); err != nil {
			if onError != nil {
				onError(err)
			}
			return sse.Failed
		}
	}

	end := domain.StreamEvent{
		Kind:           domain.EventKindMessageEnd,
		MessageID:      ids.message,
		ConversationID: ids.conversation,
		TaskID:         ids.task,
		CreatedAt:      time.Now().Unix(),
		Metadata:       &domain.MessageMetadata{Usage: m.usage(req)},
	}
	if err := onEvent(end); err != nil {
		if onError != nil {
			onError(err)
		}
		return sse.Failed
	}
	return sse.EndOfMessage
}

// Send returns the whole mock reply at once.
func (m *MockClient) Send(ctx context.Context, agent domain.AgentConfig, req *domain.ChatRequest) (*domain.ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := m.ids(req)
	return &domain.ChatCompletionResponse{
		Event:          "message",
		TaskID:         ids.task,
		ID:             ids.message,
		MessageID:      ids.message,
		ConversationID: ids.conversation,
		Mode:           "advanced-chat",
		Answer:         m.reply(req),
		Metadata:       &domain.MessageMetadata{Usage: m.usage(req)},
		CreatedAt:      time.Now().Unix(),
	}, nil
}

// Stop is a no-op.
func (m *MockClient) Stop(ctx context.Context, agent domain.AgentConfig, taskID, user string) error {
	return nil
}

type mockIDs struct {
	message, conversation, task string
}

func (m *MockClient) ids(req *domain.ChatRequest) mockIDs {
	conv := req.ConversationID
	if conv == "" {
		conv = uuid.New().String()
	}
	return mockIDs{message: uuid.New().String(), conversation: conv, task: uuid.New().String()}
}

func (m *MockClient) reply(req *domain.ChatRequest) string {
	return fmt.Sprintf("This is a mock response to: %s", req.Query)
}

func (m *MockClient) fragments(req *domain.ChatRequest) []string {
	words := strings.Fields(m.reply(req))
	out := make([]string, len(words))
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		out[i] = w
	}
	return out
}

func (m *MockClient) usage(req *domain.ChatRequest) *domain.Usage {
	prompt := len(req.Query) / 4
	completion := len(m.reply(req)) / 4
	return &domain.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
