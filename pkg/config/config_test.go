package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.Broker.URL)
	assert.True(t, cfg.Broker.AutoSubscribe)
	assert.Equal(t, 5000, cfg.Broker.HeartbeatIntervalMS)
	assert.True(t, cfg.Agent.AutoRespond)
	assert.InDelta(t, 0.3, cfg.Agent.ResponseProbability, 1e-9)
	assert.Equal(t, 4000, cfg.Agent.MaxContextTokens)
	assert.True(t, cfg.Providers.IsEmpty())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"broker": {"url": "tcp://broker.lan:1883", "username": "fox"},
		"agent": {"id": "fox", "name": "Fox", "model": "claude-sonnet-4.6"},
		"providers": {"anthropic": {"api_key": "sk-test"}}
	}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker.lan:1883", cfg.Broker.URL)
	assert.Equal(t, "fox", cfg.Broker.Username)
	assert.Equal(t, "fox", cfg.Agent.ID)
	assert.Equal(t, "claude-sonnet-4.6", cfg.Agent.Model)
	assert.Equal(t, "sk-test", cfg.Providers.Anthropic.APIKey)
	assert.False(t, cfg.Providers.IsEmpty())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"broker": {"url": "tcp://from-file:1883"},
		"agent": {"id": "file-agent"}
	}`), 0o600))

	t.Setenv("PARLOR_BROKER_URL", "tcp://from-env:1883")
	t.Setenv("PARLOR_AGENT_RESPONSE_PROBABILITY", "0.75")
	t.Setenv("PARLOR_PROVIDERS_OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://from-env:1883", cfg.Broker.URL)
	assert.Equal(t, "file-agent", cfg.Agent.ID, "file values without overrides survive")
	assert.InDelta(t, 0.75, cfg.Agent.ResponseProbability, 1e-9)
	assert.Equal(t, "sk-env", cfg.Providers.OpenAI.APIKey)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Agent.ID = "fox"
	cfg.Providers.OpenAI.APIKey = "sk-save"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fox", loaded.Agent.ID)
	assert.Equal(t, "sk-save", loaded.Providers.OpenAI.APIKey)
}
