package agent

import (
	"strings"
	"testing"

	"github.com/tinyland-inc/parlor/pkg/rooms"
)

func msg(sender, content string) rooms.ChatMessage {
	return rooms.ChatMessage{Role: "user", Sender: sender, AgentID: sender, Content: content}
}

func TestBuildContextSystemEntryFirst(t *testing.T) {
	cfg := Config{AgentID: "fox", DisplayName: "Fox"}
	out := BuildContext(nil, cfg, 1000)

	if len(out) != 1 {
		t.Fatalf("expected just the system entry, got %d entries", len(out))
	}
	if out[0].Role != "system" || !strings.Contains(out[0].Content, "Fox") {
		t.Errorf("bad system entry: %+v", out[0])
	}
}

func TestBuildContextUsesConfiguredPersona(t *testing.T) {
	cfg := Config{AgentID: "fox", SystemPrompt: "You are a grumpy fox."}
	out := BuildContext(nil, cfg, 1000)

	if out[0].Content != "You are a grumpy fox." {
		t.Errorf("persona prompt not used: %q", out[0].Content)
	}
}

func TestBuildContextLabelsRemoteMessages(t *testing.T) {
	history := []rooms.ChatMessage{
		msg("Cat", "meow"),
		{Role: "assistant", Local: true, AgentID: "fox", Content: "hello cat"},
	}
	out := BuildContext(history, Config{AgentID: "fox"}, 1000)

	if len(out) != 3 {
		t.Fatalf("expected system + 2 messages, got %d", len(out))
	}
	if out[1].Role != "user" || out[1].Content != "[Cat]: meow" {
		t.Errorf("remote message not labeled: %+v", out[1])
	}
	if out[2].Role != "assistant" || out[2].Content != "hello cat" {
		t.Errorf("local message must be verbatim assistant turn: %+v", out[2])
	}
}

func TestBuildContextTruncatesOldest(t *testing.T) {
	// Each entry costs estimateTokens("[A]: "+28 chars) tokens; pick a
	// budget that fits exactly the newest two.
	history := []rooms.ChatMessage{
		msg("A", strings.Repeat("x", 28)),
		msg("A", strings.Repeat("y", 28)),
		msg("A", strings.Repeat("z", 28)),
	}
	perMsg := estimateTokens("[A]: " + strings.Repeat("x", 28))

	out := BuildContext(history, Config{AgentID: "fox"}, perMsg*2)

	if len(out) != 3 { // system + newest 2
		t.Fatalf("expected 3 entries, got %d: %+v", len(out), out)
	}
	if !strings.Contains(out[1].Content, "y") || !strings.Contains(out[2].Content, "z") {
		t.Errorf("kept wrong suffix: %+v", out[1:])
	}
}

func TestBuildContextSkipsErrorAndStreaming(t *testing.T) {
	history := []rooms.ChatMessage{
		msg("Cat", "fine"),
		{Role: "user", Sender: "Dog", Content: "broken", Error: true},
		{Role: "assistant", Local: true, Content: "half a thou", Streaming: true},
	}
	out := BuildContext(history, Config{AgentID: "fox"}, 1000)

	if len(out) != 2 {
		t.Fatalf("expected system + 1 message, got %d: %+v", len(out), out)
	}
	if !strings.Contains(out[1].Content, "fine") {
		t.Errorf("kept the wrong message: %+v", out[1])
	}
}

func TestBuildContextZeroBudget(t *testing.T) {
	history := []rooms.ChatMessage{msg("Cat", "meow")}
	out := BuildContext(history, Config{AgentID: "fox"}, 0)

	if len(out) != 1 {
		t.Errorf("zero budget should yield only the system entry, got %d", len(out))
	}
}
