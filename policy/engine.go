// Package policy decides whether the gateway may call an outbound URL.
package policy

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// Decision values returned by the policy.
const (
	ActionAllow = "allow"
	ActionBlock = "block"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Action string
	Reason string
}

// Allowed reports whether the call may proceed.
func (d Decision) Allowed() bool {
	return d.Action != ActionBlock
}

// Input is the document the policy is evaluated against.
type Input struct {
	AgentID   string `json:"agent_id"`
	AgentKind string `json:"agent_kind"`
	Host      string `json:"host"`
	Scheme    string `json:"scheme"`
}

// NewInput builds the policy input for a call to rawURL on behalf of agent.
func NewInput(agent domain.AgentConfig, rawURL string) (Input, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Input{}, fmt.Errorf("invalid url: %w", err)
	}
	return Input{
		AgentID:   agent.ID,
		AgentKind: string(agent.Kind),
		Host:      strings.ToLower(u.Hostname()),
		Scheme:    strings.ToLower(u.Scheme),
	}, nil
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.outbound_policy.decision"),
		rego.Module("outbound_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path
// is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks the outbound policy.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// An undefined decision means the policy has no opinion.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: ActionAllow, Reason: "default"}, nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Action: val}, nil
	case map[string]interface{}:
		action, _ := val["action"].(string)
		reason, _ := val["reason"].(string)
		if action == "" {
			action = ActionAllow
		}
		return Decision{Action: action, Reason: reason}, nil
	default:
		return Decision{Action: ActionAllow, Reason: "unexpected return type"}, nil
	}
}

// Check evaluates the policy for a call to rawURL and returns an error
// wrapping domain.ErrBlocked when the call is denied.
func (e *Engine) Check(ctx context.Context, agent domain.AgentConfig, rawURL string) error {
	input, err := NewInput(agent, rawURL)
	if err != nil {
		return err
	}
	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return err
	}
	if !decision.Allowed() {
		return fmt.Errorf("%w: %s", domain.ErrBlocked, decision.Reason)
	}
	return nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package outbound_policy

allowed_schemes = {"http", "https"}

decision = {"action": "block", "reason": "unsupported url scheme"} {
	not allowed_schemes[input.scheme]
} else = {"action": "block", "reason": "internal host not allowed for crm agents"} {
	input.agent_kind == "crm"
	internal_host
} else = {"action": "allow", "reason": ""} {
	true
}

internal_host {
	input.host == "localhost"
}

internal_host {
	input.host == "::1"
}

internal_host {
	input.host == "0.0.0.0"
}

internal_host {
	startswith(input.host, "127.")
}

# Link-local, including cloud metadata endpoints.
internal_host {
	startswith(input.host, "169.254.")
}

internal_host {
	input.host == "metadata.google.internal"
}
`

// AllowAllPolicy permits every outbound call.
const AllowAllPolicy = `
package outbound_policy

default decision = {"action": "allow", "reason": ""}
`
