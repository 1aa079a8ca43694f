// Package config loads parlor configuration from a JSON file with
// PARLOR_* environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Broker    BrokerConfig    `json:"broker"`
	Agent     AgentConfig     `json:"agent"`
	Providers ProvidersConfig `json:"providers"`
}

type BrokerConfig struct {
	URL                 string `env:"PARLOR_BROKER_URL"                  json:"url"`
	ClientID            string `env:"PARLOR_BROKER_CLIENT_ID"            json:"client_id,omitempty"`
	Username            string `env:"PARLOR_BROKER_USERNAME"             json:"username"`
	AutoSubscribe       bool   `env:"PARLOR_BROKER_AUTO_SUBSCRIBE"       json:"auto_subscribe"`
	HeartbeatIntervalMS int    `env:"PARLOR_BROKER_HEARTBEAT_INTERVAL_MS" json:"heartbeat_interval_ms"`
}

type AgentConfig struct {
	ID                  string  `env:"PARLOR_AGENT_ID"                   json:"id"`
	Name                string  `env:"PARLOR_AGENT_NAME"                 json:"name"`
	SystemPrompt        string  `env:"PARLOR_AGENT_SYSTEM_PROMPT"        json:"system_prompt,omitempty"`
	Model               string  `env:"PARLOR_AGENT_MODEL"                json:"model,omitempty"`
	AutoRespond         bool    `env:"PARLOR_AGENT_AUTO_RESPOND"         json:"auto_respond"`
	ResponseProbability float64 `env:"PARLOR_AGENT_RESPONSE_PROBABILITY" json:"response_probability"`
	MaxContextTokens    int     `env:"PARLOR_AGENT_MAX_CONTEXT_TOKENS"   json:"max_context_tokens"`
	ShowThinking        bool    `env:"PARLOR_AGENT_SHOW_THINKING"        json:"show_thinking"`
}

type ProvidersConfig struct {
	Anthropic ProviderConfig `envPrefix:"PARLOR_PROVIDERS_ANTHROPIC_" json:"anthropic"`
	OpenAI    ProviderConfig `envPrefix:"PARLOR_PROVIDERS_OPENAI_"    json:"openai"`
}

type ProviderConfig struct {
	APIKey  string `env:"API_KEY"  json:"api_key"`
	APIBase string `env:"API_BASE" json:"api_base,omitempty"`
}

// IsEmpty reports whether no provider has credentials configured.
func (p ProvidersConfig) IsEmpty() bool {
	return p.Anthropic.APIKey == "" && p.Anthropic.APIBase == "" &&
		p.OpenAI.APIKey == "" && p.OpenAI.APIBase == ""
}

func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:                 "tcp://localhost:1883",
			AutoSubscribe:       true,
			HeartbeatIntervalMS: 5000,
		},
		Agent: AgentConfig{
			AutoRespond:         true,
			ResponseProbability: 0.3,
			MaxContextTokens:    4000,
		},
	}
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".parlor", "config.json")
}

// Load reads the config file at path (defaults are used when the file
// does not exist) and applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fresh install, env-only config is fine.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating the parent
// directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
