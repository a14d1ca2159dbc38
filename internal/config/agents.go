package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

type agentsFile struct {
	Agents []domain.AgentConfig `yaml:"agents"`
}

// LoadAgentsFile reads the agent list from a YAML file. Values of the form
// ${VAR} are expanded from the environment so secrets stay out of the file.
func LoadAgentsFile(path string) ([]domain.AgentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents file: %w", err)
	}
	var f agentsFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &f); err != nil {
		return nil, fmt.Errorf("failed to parse agents file: %w", err)
	}
	if len(f.Agents) == 0 {
		return nil, fmt.Errorf("agents file %s defines no agents", path)
	}
	return f.Agents, nil
}

// Agent returns the agent with the given id.
func (c *Config) Agent(id string) (domain.AgentConfig, error) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.AgentConfig{}, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, id)
}

// DefaultAgent returns the first configured agent of the given kind.
func (c *Config) DefaultAgent(kind domain.AgentKind) (domain.AgentConfig, error) {
	for _, a := range c.Agents {
		if a.Kind == kind {
			return a, nil
		}
	}
	return domain.AgentConfig{}, fmt.Errorf("%w: no %s agent configured", domain.ErrUnknownAgent, kind)
}
