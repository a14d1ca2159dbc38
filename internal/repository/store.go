// Package repository persists conversations and their messages.
package repository

import (
	"context"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// Store defines the conversation persistence operations. Lookups of missing
// conversations return domain.ErrNotFound.
type Store interface {
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	// GetConversation returns the conversation with its messages in
	// creation order.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	// ListConversations returns conversations without messages, most
	// recently updated first. An empty agentID lists every agent.
	ListConversations(ctx context.Context, agentID string, limit int) ([]domain.Conversation, error)
	UpdateConversation(ctx context.Context, conv *domain.Conversation) error
	DeleteConversation(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg *domain.Message) error
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
