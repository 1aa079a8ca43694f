package broker

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tinyland-inc/parlor/pkg/bus"
	"github.com/tinyland-inc/parlor/pkg/rooms"
)

// Router classifies inbound (topic, payload) pairs and dispatches typed
// events. Malformed payloads are dropped per message; unknown topics are
// ignored so the protocol can grow without breaking old clients.
type Router struct {
	localAgentID string
	events       *bus.Events
	store        *rooms.Store
	pending      *PendingTracker
	log          *slog.Logger
}

func NewRouter(localAgentID string, events *bus.Events, store *rooms.Store, pending *PendingTracker, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		localAgentID: localAgentID,
		events:       events,
		store:        store,
		pending:      pending,
		log:          logger.With("component", "router"),
	}
}

// Handle processes one inbound broker message. It never returns an
// error: a bad message must not halt dispatch of the ones behind it.
func (r *Router) Handle(topic string, payload []byte) {
	m := Classify(topic)

	switch m.Kind {
	case KindChat:
		r.handleChat(m, payload)
	case KindRoomList:
		r.handleRoomList(payload)
	case KindMembers:
		r.handleMembers(m, payload)
	case KindRoomHistory:
		r.handleRoomHistory(m, payload)
	case KindSenderHistory:
		r.handleSenderHistory(m, payload)
	case KindMemoryFind:
		r.handleMemoryFind(m, payload)
	case KindUnknown:
		// Forward compatibility: silently ignore.
	}
}

func (r *Router) handleChat(m Match, payload []byte) {
	var ev bus.ChatEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		r.drop("chat", m, err)
		return
	}
	if ev.RoomID == "" {
		ev.RoomID = m.RoomID
	}

	msg := rooms.ChatMessage{
		Role:      "user",
		Content:   ev.Text,
		AgentID:   ev.FromAgentID,
		Sender:    ev.FromUsername,
		Ts:        ev.Timestamp,
		Timestamp: time.UnixMilli(ev.Timestamp),
	}
	if ev.FromAgentID == r.localAgentID {
		msg.Role = "assistant"
		msg.Local = true
	}
	r.store.Append(m.RoomID, msg)

	r.events.Chat.Publish(ev)
}

func (r *Router) handleRoomList(payload []byte) {
	var snapshot []rooms.Room
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		r.drop("room_list", Match{Kind: KindRoomList}, err)
		return
	}
	r.store.ApplySnapshot(snapshot)
	r.events.RoomList.Publish(bus.RoomListEvent{Rooms: snapshot})
}

func (r *Router) handleMembers(m Match, payload []byte) {
	var members []bus.Member
	if err := json.Unmarshal(payload, &members); err != nil {
		r.drop("members", m, err)
		return
	}
	r.events.Members.Publish(bus.MembersEvent{RoomID: m.RoomID, Members: members})
}

type historyResponse struct {
	RequestID string              `json:"requestId"`
	Messages  []rooms.ChatMessage `json:"messages"`
}

func (r *Router) handleRoomHistory(m Match, payload []byte) {
	var resp historyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		r.drop("room_history", m, err)
		return
	}
	r.pending.Resolve(m.RequestID)
	r.events.RoomHistory.Publish(bus.RoomHistoryEvent{
		RoomID:    m.RoomID,
		RequestID: m.RequestID,
		Messages:  resp.Messages,
	})
}

func (r *Router) handleSenderHistory(m Match, payload []byte) {
	var resp historyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		r.drop("sender_history", m, err)
		return
	}
	r.pending.Resolve(m.RequestID)
	r.events.SenderHistory.Publish(bus.SenderHistoryEvent{
		RequestID: m.RequestID,
		Messages:  resp.Messages,
	})
}

type memoryFindResponse struct {
	RequestID string          `json:"requestId"`
	Results   []bus.MemoryHit `json:"results"`
}

func (r *Router) handleMemoryFind(m Match, payload []byte) {
	var resp memoryFindResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		r.drop("memory_find", m, err)
		return
	}
	r.pending.Resolve(m.RequestID)
	r.events.MemoryFind.Publish(bus.MemoryFindEvent{
		AgentID:   m.AgentID,
		RequestID: m.RequestID,
		Hits:      resp.Results,
	})
}

func (r *Router) drop(kind string, m Match, err error) {
	r.log.Warn("dropping malformed payload",
		"kind", kind,
		"room_id", m.RoomID,
		"request_id", m.RequestID,
		"error", err)
}
