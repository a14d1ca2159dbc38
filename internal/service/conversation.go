package service

import (
	"context"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

func (s *Service) ListConversations(ctx context.Context, agentID string, limit int) ([]domain.Conversation, error) {
	return s.store.ListConversations(ctx, agentID, limit)
}

func (s *Service) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	return s.store.DeleteConversation(ctx, id)
}
