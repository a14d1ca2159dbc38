// Package service implements the assistant gateway use cases on top of the
// chat and CRM adapters, the conversation store and the outbound policy.
package service

import (
	"context"
	"fmt"

	"github.com/emrenamli69/regnum-presentation/internal/adapter/chat"
	"github.com/emrenamli69/regnum-presentation/internal/adapter/crm"
	"github.com/emrenamli69/regnum-presentation/internal/config"
	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/repository"
	"github.com/emrenamli69/regnum-presentation/policy"
)

// DefaultUser identifies the end user to the chat upstream when the caller
// does not.
const DefaultUser = "server-user"

// Publisher fans stream events out to other observers of a conversation.
type Publisher interface {
	Publish(conversationID string, event domain.StreamEvent)
}

type Service struct {
	store        repository.Store
	chatClient   chat.ChatClient
	crmClient    *crm.Client
	config       *config.Config
	policyEngine *policy.Engine
	publisher    Publisher
}

func New(store repository.Store, chatClient chat.ChatClient, crmClient *crm.Client, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		chatClient:   chatClient,
		crmClient:    crmClient,
		config:       cfg,
		policyEngine: policyEngine,
	}
}

// SetPublisher registers the conversation event fan-out. It must be called
// before the service handles requests.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// ListAgents returns the configured agents.
func (s *Service) ListAgents() []domain.AgentConfig {
	return s.config.Agents
}

// resolveAgent returns the agent with id, or the first agent of kind when
// id is empty. The agent must be of the requested kind.
func (s *Service) resolveAgent(id string, kind domain.AgentKind) (domain.AgentConfig, error) {
	if id == "" {
		return s.config.DefaultAgent(kind)
	}
	agent, err := s.config.Agent(id)
	if err != nil {
		return domain.AgentConfig{}, err
	}
	if agent.Kind != kind {
		return domain.AgentConfig{}, fmt.Errorf("%w: agent %s is not a %s agent", domain.ErrInvalidInput, id, kind)
	}
	return agent, nil
}

func (s *Service) checkPolicy(ctx context.Context, agent domain.AgentConfig, rawURL string) error {
	if s.policyEngine == nil {
		return nil
	}
	return s.policyEngine.Check(ctx, agent, rawURL)
}
