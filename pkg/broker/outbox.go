package broker

import "sync"

// OutboxEntry is one publish buffered while the transport is down.
type OutboxEntry struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// Outbox buffers publishes issued while disconnected and replays them in
// FIFO order once the transport comes back. It never reorders or drops
// entries on its own; loss is only possible if the process exits before
// a flush.
type Outbox struct {
	mu      sync.Mutex
	entries []OutboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Enqueue appends an entry to the tail of the queue.
func (o *Outbox) Enqueue(e OutboxEntry) {
	o.mu.Lock()
	o.entries = append(o.entries, e)
	o.mu.Unlock()
}

// Drain removes and returns all buffered entries in the order they were
// enqueued.
func (o *Outbox) Drain() []OutboxEntry {
	o.mu.Lock()
	out := o.entries
	o.entries = nil
	o.mu.Unlock()
	return out
}

// Len reports the number of buffered entries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Clear discards all buffered entries.
func (o *Outbox) Clear() {
	o.mu.Lock()
	o.entries = nil
	o.mu.Unlock()
}
