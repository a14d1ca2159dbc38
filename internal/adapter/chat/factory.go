package chat

import (
	"context"
	"os"
	"time"

	"goa.design/clue/log"
)

const (
	// EnvAssistantMode is the environment variable name for mode selection.
	EnvAssistantMode = "ASSISTANT_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewChatClient creates a chat client based on the ASSISTANT_MODE environment
// variable. If ASSISTANT_MODE=MOCK, returns a MockClient; otherwise returns a
// real Client.
func NewChatClient(ctx context.Context, timeout time.Duration) ChatClient {
	if os.Getenv(EnvAssistantMode) == ModeMock {
		log.Info(ctx, log.KV{K: "msg", V: "ASSISTANT_MODE=MOCK detected, using mock chat client"})
		return NewMockClient()
	}
	return NewClient(timeout)
}
