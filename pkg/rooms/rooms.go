// Package rooms holds the client's local projection of room state.
//
// The authoritative copy of every room lives on the backend; clients
// receive snapshots over the broker and merge them into this store. The
// merge never discards locally accumulated message history.
package rooms

import (
	"sort"
	"sync"
	"time"
)

// ChatMessage is a single message in a room transcript. A message is
// immutable once Streaming is false.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	AgentID   string    `json:"agentId,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	ModelName string    `json:"modelName,omitempty"`
	Local     bool      `json:"-"`
	Streaming bool      `json:"streaming,omitempty"`
	Error     bool      `json:"isError,omitempty"`
	Timestamp time.Time `json:"-"`
	Ts        int64     `json:"ts,omitempty"`
}

// Room is the local projection of one shared room.
type Room struct {
	ID         string        `json:"id"`
	Topic      string        `json:"topic"`
	Logo       string        `json:"logo,omitempty"`
	LastUpdate int64         `json:"lastUpdate,omitempty"`
	Messages   []ChatMessage `json:"messages,omitempty"`
}

// Store tracks all rooms the client has seen.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// ApplySnapshot merges an incoming room-list snapshot. For rooms the
// client already knows, display fields are adopted from the snapshot but
// local message history is kept whenever the snapshot carries none.
func (s *Store) ApplySnapshot(incoming []Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range incoming {
		existing, ok := s.rooms[in.ID]
		if !ok {
			r := in
			s.rooms[in.ID] = &r
			continue
		}
		if len(in.Messages) == 0 {
			in.Messages = existing.Messages
		}
		*existing = in
	}
}

// Append adds a message to a room's transcript, creating the room record
// if it has never been seen.
func (s *Store) Append(roomID string, msg ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		r = &Room{ID: roomID}
		s.rooms[roomID] = r
	}
	r.Messages = append(r.Messages, msg)
	if ts := msg.Ts; ts > r.LastUpdate {
		r.LastUpdate = ts
	}
}

// Get returns a copy of the room, or false if unknown.
func (s *Store) Get(roomID string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	out := *r
	out.Messages = append([]ChatMessage(nil), r.Messages...)
	return out, true
}

// Messages returns a copy of a room's transcript in arrival order.
func (s *Store) Messages(roomID string) []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]ChatMessage(nil), r.Messages...)
}

// List returns all known rooms sorted by most recent update.
func (s *Store) List() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		c := *r
		c.Messages = append([]ChatMessage(nil), r.Messages...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdate > out[j].LastUpdate })
	return out
}
