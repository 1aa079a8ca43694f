package providers

import (
	"errors"

	"github.com/tinyland-inc/parlor/pkg/config"
	anthropicprovider "github.com/tinyland-inc/parlor/pkg/providers/anthropic"
	openaiprovider "github.com/tinyland-inc/parlor/pkg/providers/openai"
)

// ErrNoProvider is returned when no provider credentials are configured.
var ErrNoProvider = errors.New("providers: no provider configured, set an anthropic or openai API key")

// CreateProvider picks a provider from config and returns it together
// with the resolved model ID. Anthropic wins when both are configured.
func CreateProvider(cfg *config.Config) (Provider, string, error) {
	var p Provider
	switch {
	case cfg.Providers.Anthropic.APIKey != "":
		p = anthropicprovider.NewProviderWithBaseURL(
			cfg.Providers.Anthropic.APIKey,
			cfg.Providers.Anthropic.APIBase,
		)
	case cfg.Providers.OpenAI.APIKey != "":
		p = openaiprovider.NewProviderWithBaseURL(
			cfg.Providers.OpenAI.APIKey,
			cfg.Providers.OpenAI.APIBase,
		)
	default:
		return nil, "", ErrNoProvider
	}

	model := cfg.Agent.Model
	if model == "" {
		model = p.DefaultModel()
	}
	return p, model, nil
}
