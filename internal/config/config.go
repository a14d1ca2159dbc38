// Package config provides configuration for the assistant gateway.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort int
	Env      string

	// Database
	DatabaseURL string

	// Chat upstream defaults
	DifyAPIURL  string
	DifyAPIKey  string
	ChatTimeout time.Duration

	// CRM upstream defaults
	CRMAPIURL      string
	CRMUsername    string
	CRMPassword    string
	CRMTimeout     time.Duration
	CRMMaxAttempts int
	CRMBackoff     time.Duration
	// CRMRateLimit is the number of outbound CRM attempts per second; 0
	// disables limiting.
	CRMRateLimit  float64
	HealthTimeout time.Duration

	// WebSocket settings
	// WSAPIKey, when set, must be passed as the api_key query parameter.
	WSAPIKey         string
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Outbound policy; empty uses the built-in policy.
	PolicyFile string

	// Agents
	AgentsFile string
	Agents     []domain.AgentConfig

	// Logging
	LogFormat string
	LogDebug  bool
}

// Load loads configuration from environment variables and, when
// AGENTS_FILE is set, the agents file.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 3000),
		Env:              getEnv("APP_ENV", "development"),
		DatabaseURL:      getEnv("DATABASE_URL", "file:assistant.db?cache=shared&mode=rwc"),
		DifyAPIURL:       getEnv("DIFY_API_URL", ""),
		DifyAPIKey:       getEnv("DIFY_API_KEY", ""),
		ChatTimeout:      time.Duration(getEnvInt("CHAT_TIMEOUT_MS", 300000)) * time.Millisecond,
		CRMAPIURL:        getEnv("CRM_API_URL", ""),
		CRMUsername:      getEnv("CRM_USERNAME", ""),
		CRMPassword:      getEnv("CRM_PASSWORD", ""),
		CRMTimeout:       time.Duration(getEnvInt("CRM_TIMEOUT_MS", 60000)) * time.Millisecond,
		CRMMaxAttempts:   getEnvInt("CRM_MAX_ATTEMPTS", 3),
		CRMBackoff:       time.Duration(getEnvInt("CRM_BACKOFF_MS", 1000)) * time.Millisecond,
		CRMRateLimit:     getEnvFloat("CRM_RATE_LIMIT", 0),
		HealthTimeout:    time.Duration(getEnvInt("HEALTH_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSAPIKey:         getEnv("WS_API_KEY", ""),
		WSPingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WSWriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		WSMaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		PolicyFile:       getEnv("POLICY_FILE", ""),
		AgentsFile:       getEnv("AGENTS_FILE", ""),
		LogFormat:        getEnv("LOG_FORMAT", ""),
		LogDebug:         getEnv("LOG_DEBUG", "") == "true",
	}

	if cfg.AgentsFile != "" {
		agents, err := LoadAgentsFile(cfg.AgentsFile)
		if err != nil {
			return nil, err
		}
		cfg.Agents = agents
	} else {
		cfg.Agents = cfg.DefaultAgents()
	}

	if err := validateAgents(cfg.Agents); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether error details should be hidden.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DefaultAgents returns the built-in agents wired to the environment
// defaults.
func (c *Config) DefaultAgents() []domain.AgentConfig {
	return []domain.AgentConfig{
		{
			ID:             "employee-assistant",
			Name:           "Employee Assistant",
			Description:    "Your AI-powered workplace companion",
			Kind:           domain.AgentKindChat,
			APIURL:         getEnv("EMPLOYEE_ASSISTANT_API_URL", c.DifyAPIURL),
			APIKey:         getEnv("EMPLOYEE_ASSISTANT_API_KEY", c.DifyAPIKey),
			Placeholder:    "Ask about company policies, HR questions, or workplace assistance...",
			WelcomeMessage: "Hello! I'm your Employee Assistant. How can I help you with your workplace needs today?",
		},
		{
			ID:             "crm-assistant",
			Name:           "CRM Assistant",
			Description:    "Customer relationship management helper",
			Kind:           domain.AgentKindCRM,
			APIURL:         c.CRMAPIURL,
			Username:       c.CRMUsername,
			Password:       c.CRMPassword,
			Placeholder:    "Ask about customers, sales, or CRM-related queries...",
			WelcomeMessage: "Welcome! I'm your CRM Assistant. How can I help you manage customer relationships today?",
		},
	}
}

func validateAgents(agents []domain.AgentConfig) error {
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a.ID == "" {
			return fmt.Errorf("agent %q: id is required", a.Name)
		}
		if seen[a.ID] {
			return fmt.Errorf("agent %q: duplicate id", a.ID)
		}
		seen[a.ID] = true
		switch a.Kind {
		case domain.AgentKindChat, domain.AgentKindCRM:
		default:
			return fmt.Errorf("agent %q: unknown kind %q", a.ID, a.Kind)
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
