package bus

import "github.com/tinyland-inc/parlor/pkg/rooms"

// ChatEvent is a chat message delivered on rooms/<roomId>/chat/out.
type ChatEvent struct {
	RoomID       string `json:"roomId"`
	FromAgentID  string `json:"fromAgentId"`
	FromUsername string `json:"fromUsername"`
	Type         string `json:"type"`
	Text         string `json:"msg"`
	Timestamp    int64  `json:"ts"`
}

// RoomListEvent carries a full room-list snapshot from rooms/state.
type RoomListEvent struct {
	Rooms []rooms.Room
}

// Member is one entry of a room membership snapshot.
type Member struct {
	AgentID  string `json:"agentId"`
	Username string `json:"username"`
	Ts       int64  `json:"ts"`
}

// MembersEvent carries a membership snapshot for a single room.
type MembersEvent struct {
	RoomID  string
	Members []Member
}

// RoomHistoryEvent is the response to a room history request.
type RoomHistoryEvent struct {
	RoomID    string
	RequestID string
	Messages  []rooms.ChatMessage
}

// SenderHistoryEvent is the response to a sender history request.
type SenderHistoryEvent struct {
	RequestID string
	Messages  []rooms.ChatMessage
}

// MemoryHit is one result of an agent memory search.
type MemoryHit struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// MemoryFindEvent is the response to a memory search request.
type MemoryFindEvent struct {
	AgentID   string
	RequestID string
	Hits      []MemoryHit
}

// LifecycleKind enumerates connection lifecycle transitions.
type LifecycleKind int

const (
	LifecycleConnected LifecycleKind = iota
	LifecycleReconnecting
	LifecycleClosed
	LifecycleError
)

func (k LifecycleKind) String() string {
	switch k {
	case LifecycleConnected:
		return "connected"
	case LifecycleReconnecting:
		return "reconnecting"
	case LifecycleClosed:
		return "closed"
	case LifecycleError:
		return "error"
	}
	return "unknown"
}

// LifecycleEvent reports a connection state change. Err is set for
// LifecycleError and LifecycleReconnecting events.
type LifecycleEvent struct {
	Kind LifecycleKind
	Err  error
}
