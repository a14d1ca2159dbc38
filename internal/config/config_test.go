package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DIFY_API_URL", "https://dify.example.com/v1")
	t.Setenv("DIFY_API_KEY", "app-key")
	t.Setenv("CRM_TIMEOUT_MS", "1500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.CRMTimeout)
	assert.Equal(t, 3, cfg.CRMMaxAttempts)
	assert.False(t, cfg.IsProduction())

	chat, err := cfg.DefaultAgent(domain.AgentKindChat)
	require.NoError(t, err)
	assert.Equal(t, "employee-assistant", chat.ID)
	assert.Equal(t, "https://dify.example.com/v1", chat.APIURL)
	assert.Equal(t, "app-key", chat.APIKey)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-port")
	t.Setenv("CRM_RATE_LIMIT", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, 2.5, cfg.CRMRateLimit)
}

func TestLoadAgentsFile(t *testing.T) {
	t.Setenv("SALES_KEY", "secret-key")
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := `agents:
  - id: sales
    name: Sales Assistant
    kind: chat
    api_url: https://dify.example.com/v1
    api_key: ${SALES_KEY}
  - id: crm
    name: CRM
    kind: crm
    api_url: https://n8n.example.com/webhook/crm
    username: bot
    password: pw
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("AGENTS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 2)

	sales, err := cfg.Agent("sales")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", sales.APIKey)
	assert.Equal(t, domain.AgentKindChat, sales.Kind)

	crm, err := cfg.DefaultAgent(domain.AgentKindCRM)
	require.NoError(t, err)
	assert.Equal(t, "bot", crm.Username)
}

func TestLoadRejectsBadAgents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents:\n  - id: a\n    kind: fax\n"), 0o600))
	t.Setenv("AGENTS_FILE", path)

	_, err := Load()
	assert.ErrorContains(t, err, "unknown kind")
}

func TestAgentUnknown(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.Agent("nope")
	assert.True(t, errors.Is(err, domain.ErrUnknownAgent))
}
