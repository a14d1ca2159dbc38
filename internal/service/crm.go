package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// QueryCRM forwards a question to the CRM webhook of the requested agent.
func (s *Service) QueryCRM(ctx context.Context, req domain.CRMQueryRequest) (*domain.CRMQueryResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	agent, err := s.resolveAgent(req.AgentID, domain.AgentKindCRM)
	if err != nil {
		return nil, err
	}
	if err := s.checkPolicy(ctx, agent, agent.APIURL); err != nil {
		return nil, err
	}

	res, err := s.crmClient.Query(ctx, agent, req.Question)
	if err != nil {
		return nil, err
	}
	return &domain.CRMQueryResponse{
		Response: res.Answer,
		Raw:      res.Response.JSON(),
		Attempts: res.Response.Attempts,
		Duration: res.Response.Elapsed.Milliseconds(),
	}, nil
}

// CheckCRMHealth probes a CRM endpoint. Missing fields fall back to the
// default CRM agent.
func (s *Service) CheckCRMHealth(ctx context.Context, req domain.CRMHealthRequest) (*domain.HealthReport, error) {
	agent, _ := s.config.DefaultAgent(domain.AgentKindCRM)
	if req.URL == "" {
		req.URL = agent.APIURL
		if req.Username == "" && req.Password == "" {
			req.Username, req.Password = agent.Username, agent.Password
		}
	}
	if req.URL == "" {
		return nil, fmt.Errorf("%w: URL parameter is required for health check", domain.ErrInvalidInput)
	}
	if agent.Kind == "" {
		agent.Kind = domain.AgentKindCRM
	}
	if err := s.checkPolicy(ctx, agent, req.URL); err != nil {
		return nil, err
	}
	return s.crmClient.Health(ctx, req.URL, req.Username, req.Password), nil
}
