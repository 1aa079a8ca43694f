// Package providers defines the streaming inference capability consumed
// by the turn-taking coordinator, plus a config-driven factory over the
// concrete implementations.
package providers

import (
	"context"

	"github.com/tinyland-inc/parlor/pkg/providers/protocoltypes"
)

type (
	Message       = protocoltypes.Message
	StreamHandler = protocoltypes.StreamHandler
)

// Provider produces a streamed completion for a bounded prompt: zero or
// more onDelta calls followed by exactly one return (full text or
// error). Cancellation goes through ctx.
type Provider interface {
	Stream(ctx context.Context, messages []Message, model string, maxTokens int, onDelta StreamHandler) (string, error)
	DefaultModel() string
}
