package agent

import (
	"context"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tinyland-inc/parlor/pkg/bus"
	"github.com/tinyland-inc/parlor/pkg/providers"
	"github.com/tinyland-inc/parlor/pkg/rooms"
)

const generationMaxTokens = 4096

// State is what a response policy gets to look at when deciding whether
// the agent should answer an observed message.
type State struct {
	AgentID        string
	RoomID         string
	TriggerAgentID string
}

// ResponsePolicy is the pluggable autonomy gate. Returning false keeps
// the agent silent for this trigger. Swapping the default probabilistic
// gate for a lock or election protocol does not touch the state machine.
type ResponsePolicy func(State) bool

// ProbabilisticPolicy responds to a fixed fraction of triggers.
func ProbabilisticPolicy(p float64) ResponsePolicy {
	return func(State) bool { return rand.Float64() < p }
}

// AlwaysRespond answers every trigger. Useful for tests and demos.
func AlwaysRespond() ResponsePolicy {
	return func(State) bool { return true }
}

// RoomSender is the outbound half the coordinator needs from the broker
// client.
type RoomSender interface {
	SendRoomMessage(roomID, text string) error
}

// Coordinator decides whether this agent instance answers an observed
// chat message, runs the generation, and publishes the reply. It
// enforces at most one active generation per local agent: a second
// trigger arriving mid-generation is ignored. Two different agent
// processes may still answer the same trigger; there is deliberately no
// central arbiter, and the room simply receives both replies.
type Coordinator struct {
	cfg      Config
	provider providers.Provider
	sender   RoomSender
	store    *rooms.Store
	policy   ResponsePolicy
	log      *slog.Logger

	mu         sync.Mutex
	gen        uint64 // identity of the active generation
	generating bool
	streaming  *rooms.ChatMessage
	cancel     context.CancelFunc
}

func NewCoordinator(
	cfg Config,
	provider providers.Provider,
	sender RoomSender,
	store *rooms.Store,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:      cfg,
		provider: provider,
		sender:   sender,
		store:    store,
		policy:   ProbabilisticPolicy(cfg.ResponseProbability),
		log:      logger.With("component", "coordinator", "agent_id", cfg.AgentID),
	}
}

// SetPolicy replaces the autonomy gate. Call before Attach.
func (c *Coordinator) SetPolicy(p ResponsePolicy) {
	c.policy = p
}

// Attach subscribes the coordinator to the chat feed. The returned
// cancel function detaches it.
func (c *Coordinator) Attach(events *bus.Events) func() {
	return events.Chat.Subscribe(c.HandleChat)
}

// HandleChat observes one chat event and may enter the Generating state.
// All entry conditions must hold: the message is not the agent's own, no
// generation is active, an agent identity is configured, and the policy
// gate allows it.
func (c *Coordinator) HandleChat(ev bus.ChatEvent) {
	if c.cfg.AgentID == "" || ev.FromAgentID == c.cfg.AgentID {
		return
	}
	if !c.cfg.AutoRespond {
		return
	}

	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return
	}
	if !c.policy(State{AgentID: c.cfg.AgentID, RoomID: ev.RoomID, TriggerAgentID: ev.FromAgentID}) {
		c.mu.Unlock()
		return
	}

	c.gen++
	gen := c.gen
	c.generating = true
	c.streaming = &rooms.ChatMessage{
		Role:      "assistant",
		AgentID:   c.cfg.AgentID,
		Sender:    c.cfg.DisplayName,
		ModelName: c.cfg.Model,
		Local:     true,
		Streaming: true,
		Timestamp: time.Now(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	prompt := BuildContext(c.store.Messages(ev.RoomID), c.cfg, c.cfg.MaxContextTokens)
	go c.generate(ctx, gen, ev.RoomID, prompt)
}

func (c *Coordinator) generate(ctx context.Context, gen uint64, roomID string, prompt []providers.Message) {
	text, err := c.provider.Stream(ctx, prompt, c.cfg.Model, generationMaxTokens, func(delta string) {
		c.mu.Lock()
		// Tokens from a superseded generation are dropped.
		if c.gen == gen && c.streaming != nil {
			c.streaming.Content += delta
		}
		c.mu.Unlock()
	})
	if err != nil {
		// A failed generation produces silence, not an error message in
		// the room.
		c.log.Warn("generation failed", "room_id", roomID, "error", err)
		c.reset(gen)
		return
	}

	// A provider that keeps streaming past ctx cancellation can return
	// successfully after an abort; its completion must be discarded.
	c.mu.Lock()
	current := c.gen == gen
	c.mu.Unlock()
	if !current {
		return
	}

	if !c.cfg.ShowThinking {
		text = stripThinking(text)
	}
	if strings.TrimSpace(text) != "" {
		if err := c.sender.SendRoomMessage(roomID, text); err != nil {
			c.log.Warn("publish reply failed", "room_id", roomID, "error", err)
		}
	}
	c.reset(gen)
}

// reset returns the coordinator to Idle, but only when the finishing
// generation still owns the state. Teardown from a generation that has
// been aborted or superseded must not clear its successor's state.
func (c *Coordinator) reset(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.generating = false
	c.streaming = nil
	c.cancel = nil
}

// Abort forcibly returns the coordinator to Idle, regardless of state.
// It also cancels the in-flight inference context; bumping the
// generation counter orphans the aborted call, so tokens or a
// completion it produces anyway are dropped.
func (c *Coordinator) Abort() {
	c.mu.Lock()
	c.gen++
	cancel := c.cancel
	c.generating = false
	c.streaming = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsGenerating reports whether a generation is active.
func (c *Coordinator) IsGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// StreamingMessage returns a copy of the in-progress reply for display,
// or false when idle. Observers must not mutate coordinator state.
func (c *Coordinator) StreamingMessage() (rooms.ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streaming == nil {
		return rooms.ChatMessage{}, false
	}
	return *c.streaming, true
}

var thinkingBlockRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>\s*`)

// stripThinking removes reasoning scaffolding blocks from a completion
// when the configuration disables showing them.
func stripThinking(s string) string {
	return strings.TrimSpace(thinkingBlockRe.ReplaceAllString(s, ""))
}
