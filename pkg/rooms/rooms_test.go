package rooms

import "testing"

func TestSnapshotMergePreservesHistory(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.Append("r1", ChatMessage{Role: "user", Content: "msg", Ts: int64(i)})
	}

	s.ApplySnapshot([]Room{{ID: "r1", Topic: "Renamed Room", Logo: "🦊"}})

	r, ok := s.Get("r1")
	if !ok {
		t.Fatal("room r1 missing after merge")
	}
	if r.Topic != "Renamed Room" {
		t.Errorf("topic: got %q, want %q", r.Topic, "Renamed Room")
	}
	if len(r.Messages) != 5 {
		t.Errorf("messages: got %d, want 5 (snapshot without messages must not clear history)", len(r.Messages))
	}
}

func TestSnapshotAddsUnknownRooms(t *testing.T) {
	s := NewStore()
	s.ApplySnapshot([]Room{{ID: "a", Topic: "A"}, {ID: "b", Topic: "B"}})

	if len(s.List()) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(s.List()))
	}
}

func TestSnapshotWithMessagesAdoptsThem(t *testing.T) {
	s := NewStore()
	s.Append("r1", ChatMessage{Content: "local"})

	s.ApplySnapshot([]Room{{ID: "r1", Messages: []ChatMessage{{Content: "a"}, {Content: "b"}}}})

	msgs := s.Messages("r1")
	if len(msgs) != 2 {
		t.Fatalf("expected server history to win when present, got %d messages", len(msgs))
	}
}

func TestAppendCreatesRoom(t *testing.T) {
	s := NewStore()
	s.Append("new", ChatMessage{Content: "hi", Ts: 10})

	r, ok := s.Get("new")
	if !ok {
		t.Fatal("room not created on append")
	}
	if r.LastUpdate != 10 {
		t.Errorf("lastUpdate: got %d, want 10", r.LastUpdate)
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("r", ChatMessage{Content: "one"})

	msgs := s.Messages("r")
	msgs[0].Content = "mutated"

	if got := s.Messages("r")[0].Content; got != "one" {
		t.Errorf("store state mutated through returned slice: %q", got)
	}
}
