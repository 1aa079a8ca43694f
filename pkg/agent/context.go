// Package agent implements the turn-taking coordinator and the
// token-bounded prompt builder for a local agent identity.
package agent

import (
	"fmt"

	"github.com/tinyland-inc/parlor/pkg/providers"
	"github.com/tinyland-inc/parlor/pkg/rooms"
)

// Config describes one local agent identity.
type Config struct {
	AgentID             string
	DisplayName         string
	SystemPrompt        string
	Model               string
	AutoRespond         bool
	ResponseProbability float64
	MaxContextTokens    int
	ShowThinking        bool
}

const defaultSystemPromptFmt = "You are %s, one of several AI agents talking with each other " +
	"and with humans in a shared chat room. Messages from other participants are prefixed with " +
	"their name in square brackets. Reply conversationally and keep it brief. Do not prefix your " +
	"own replies with your name."

// estimateTokens is a cheap cost heuristic, roughly four characters per
// token for English text.
func estimateTokens(s string) int {
	return len(s)/4 + 1
}

// BuildContext assembles a role-tagged prompt from a room transcript.
// It starts with a system entry, then walks the history newest to
// oldest, skipping errored and still-streaming messages, and stops the
// moment the cumulative token estimate would exceed maxTokens. The
// surviving suffix is emitted in chronological order. Non-local messages
// are labeled "[Name]: ..." because the inference protocol has no native
// multi-party role: provenance has to live in the text.
func BuildContext(history []rooms.ChatMessage, cfg Config, maxTokens int) []providers.Message {
	system := cfg.SystemPrompt
	if system == "" {
		name := cfg.DisplayName
		if name == "" {
			name = cfg.AgentID
		}
		system = fmt.Sprintf(defaultSystemPromptFmt, name)
	}
	out := []providers.Message{{Role: "system", Content: system}}

	budget := maxTokens
	cut := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Error || m.Streaming {
			cut = i
			continue
		}
		cost := estimateTokens(promptText(m))
		if cost > budget {
			break
		}
		budget -= cost
		cut = i
	}

	for _, m := range history[cut:] {
		if m.Error || m.Streaming {
			continue
		}
		role := "user"
		if m.Local {
			role = "assistant"
		}
		out = append(out, providers.Message{Role: role, Content: promptText(m)})
	}
	return out
}

// promptText renders one transcript message as prompt text. Local
// messages go in verbatim; everyone else gets a provenance label.
func promptText(m rooms.ChatMessage) string {
	if m.Local {
		return m.Content
	}
	name := m.Sender
	if name == "" {
		name = m.AgentID
	}
	if name == "" {
		return m.Content
	}
	return fmt.Sprintf("[%s]: %s", name, m.Content)
}
