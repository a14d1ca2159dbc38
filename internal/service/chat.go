package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/sse"
)

// SendResult describes a completed chat turn.
type SendResult struct {
	ConversationID string                  `json:"conversation_id"`
	MessageID      string                  `json:"message_id"`
	TaskID         string                  `json:"task_id,omitempty"`
	Answer         string                  `json:"answer"`
	Metadata       *domain.MessageMetadata `json:"metadata,omitempty"`
	Termination    string                  `json:"termination"`
}

// reply accumulates the assistant answer from stream events.
type reply struct {
	answer   strings.Builder
	metadata *domain.MessageMetadata
	taskID   string
	upstream string
	ended    bool
}

func (r *reply) apply(event domain.StreamEvent) {
	if event.TaskID != "" {
		r.taskID = event.TaskID
	}
	if event.ConversationID != "" {
		r.upstream = event.ConversationID
	}
	switch event.Kind {
	case domain.EventKindMessage, domain.EventKindAgentMessage:
		r.answer.WriteString(event.Answer)
	case domain.EventKindMessageReplace:
		r.answer.Reset()
		r.answer.WriteString(event.Answer)
	case domain.EventKindMessageEnd:
		r.metadata = event.Metadata
		r.ended = true
	}
}

// SendMessage runs one chat turn. In streaming mode every event is passed to
// sink as it arrives, with ConversationID set to the gateway conversation.
// The user message is persisted before the upstream call; the assistant
// message only when the turn completes.
func (s *Service) SendMessage(ctx context.Context, input domain.SendMessageInput, sink sse.EventFunc) (*SendResult, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	existing, err := s.loadConversation(ctx, input)
	if err != nil {
		return nil, err
	}
	agentID := input.AgentID
	if existing != nil {
		agentID = existing.AgentID
	}
	agent, err := s.resolveAgent(agentID, domain.AgentKindChat)
	if err != nil {
		return nil, err
	}
	// Nothing is written until the turn is allowed.
	if err := s.checkPolicy(ctx, agent, agent.APIURL); err != nil {
		return nil, err
	}
	conv, err := s.openConversation(ctx, existing, agent, input.Query)
	if err != nil {
		return nil, err
	}

	userMsg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        input.Query,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	req := &domain.ChatRequest{
		Query:          input.Query,
		Inputs:         input.Inputs,
		User:           input.User,
		ConversationID: conv.UpstreamID,
		Files:          input.Files,
	}
	if req.Inputs == nil {
		req.Inputs = map[string]any{}
	}
	if req.User == "" {
		req.User = DefaultUser
	}

	log.Info(ctx,
		log.KV{K: "msg", V: "chat turn started"},
		log.KV{K: "agent", V: agent.ID},
		log.KV{K: "conversation_id", V: conv.ID},
		log.KV{K: "mode", V: string(input.ResponseMode)},
	)

	r := &reply{}
	termination := sse.EndOfMessage
	if input.ResponseMode == domain.ResponseModeBlocking {
		resp, err := s.chatClient.Send(ctx, agent, req)
		if err != nil {
			s.logTurnFailed(ctx, conv.ID, err)
			return nil, err
		}
		r.answer.WriteString(resp.Answer)
		r.metadata = resp.Metadata
		r.taskID = resp.TaskID
		r.upstream = resp.ConversationID
	} else {
		var streamErr error
		onEvent := func(event domain.StreamEvent) error {
			r.apply(event)
			event.ConversationID = conv.ID
			if sink != nil {
				if err := sink(event); err != nil {
					return err
				}
			}
			if s.publisher != nil {
				s.publisher.Publish(conv.ID, event)
			}
			return nil
		}
		onError := func(err error) {
			streamErr = err
		}
		termination = s.chatClient.Stream(ctx, agent, req, onEvent, onError)
		if termination == sse.Failed {
			if streamErr == nil {
				streamErr = errors.New("chat stream failed")
			}
			s.logTurnFailed(ctx, conv.ID, streamErr)
			return nil, streamErr
		}
		if !r.ended {
			log.Warn(ctx,
				log.KV{K: "msg", V: "chat stream ended without message_end"},
				log.KV{K: "conversation_id", V: conv.ID},
			)
		}
	}

	assistant := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           domain.RoleAssistant,
		Content:        r.answer.String(),
		Metadata:       r.metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, assistant); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	if r.upstream != "" && r.upstream != conv.UpstreamID {
		conv.UpstreamID = r.upstream
		conv.UpdatedAt = assistant.CreatedAt
		if err := s.store.UpdateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to update conversation: %w", err)
		}
	}

	log.Info(ctx,
		log.KV{K: "msg", V: "chat turn completed"},
		log.KV{K: "conversation_id", V: conv.ID},
		log.KV{K: "termination", V: termination.String()},
		log.KV{K: "answer_len", V: len(assistant.Content)},
	)

	return &SendResult{
		ConversationID: conv.ID,
		MessageID:      assistant.ID,
		TaskID:         r.taskID,
		Answer:         assistant.Content,
		Metadata:       r.metadata,
		Termination:    termination.String(),
	}, nil
}

// loadConversation returns the conversation named by input, or nil when
// input starts a new one.
func (s *Service) loadConversation(ctx context.Context, input domain.SendMessageInput) (*domain.Conversation, error) {
	if input.ConversationID == "" {
		return nil, nil
	}
	conv, err := s.store.GetConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if input.AgentID != "" && input.AgentID != conv.AgentID {
		return nil, fmt.Errorf("%w: conversation %s belongs to agent %s", domain.ErrInvalidInput, conv.ID, conv.AgentID)
	}
	return conv, nil
}

// openConversation retitles an untitled existing conversation, or creates
// one for agent titled after the query.
func (s *Service) openConversation(ctx context.Context, existing *domain.Conversation, agent domain.AgentConfig, query string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	if existing != nil {
		if existing.Title == domain.DefaultConversationTitle {
			existing.Title = domain.TitleFromQuery(query)
			existing.UpdatedAt = now
			if err := s.store.UpdateConversation(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		AgentID:   agent.ID,
		Title:     domain.TitleFromQuery(query),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) logTurnFailed(ctx context.Context, conversationID string, err error) {
	log.Error(ctx, err,
		log.KV{K: "msg", V: "chat turn failed"},
		log.KV{K: "conversation_id", V: conversationID},
	)
}

// StopGeneration asks the upstream of agentID to stop the task.
func (s *Service) StopGeneration(ctx context.Context, agentID, taskID, user string) error {
	if taskID == "" {
		return fmt.Errorf("%w: task id is required", domain.ErrInvalidInput)
	}
	agent, err := s.resolveAgent(agentID, domain.AgentKindChat)
	if err != nil {
		return err
	}
	if user == "" {
		user = DefaultUser
	}
	return s.chatClient.Stop(ctx, agent, taskID, user)
}
