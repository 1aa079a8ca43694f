package broker

import (
	"container/list"
	"sync"
	"time"
)

// pendingEntry records when a request was issued, plus its position in
// the eviction list.
type pendingEntry struct {
	issuedAt time.Time
	element  *list.Element
}

// PendingTracker bounds the set of outstanding request IDs. Responses are
// matched purely by topic, so the tracker exists only to cap memory
// growth over a long session: entries expire after a TTL and the oldest
// entry is evicted once the size cap is hit.
type PendingTracker struct {
	mu      sync.Mutex
	pending map[string]*pendingEntry
	order   *list.List // request IDs, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// NewPendingTracker starts a tracker with the given TTL and size cap. A
// background goroutine sweeps expired entries once a minute.
func NewPendingTracker(ttl time.Duration, maxSize int) *PendingTracker {
	t := &PendingTracker{
		pending: make(map[string]*pendingEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go t.sweep()
	return t
}

// Add records a newly issued request ID.
func (t *PendingTracker) Add(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.pending[requestID]; ok {
		e.issuedAt = time.Now()
		t.order.MoveToBack(e.element)
		return
	}
	if len(t.pending) >= t.maxSize {
		t.evictOldest()
	}
	elem := t.order.PushBack(requestID)
	t.pending[requestID] = &pendingEntry{issuedAt: time.Now(), element: elem}
}

// Resolve removes a request ID on response arrival. Returns false for
// unknown or already-evicted IDs; late responses are simply no longer
// tracked, which is harmless because reads are idempotent.
func (t *PendingTracker) Resolve(requestID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pending[requestID]
	if !ok {
		return false
	}
	t.order.Remove(e.element)
	delete(t.pending, requestID)
	return true
}

// Len reports the number of tracked requests.
func (t *PendingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *PendingTracker) evictOldest() {
	front := t.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	t.order.Remove(front)
	delete(t.pending, id)
}

func (t *PendingTracker) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.expire()
		case <-t.done:
			return
		}
	}
}

func (t *PendingTracker) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for id, e := range t.pending {
		if now.Sub(e.issuedAt) > t.ttl {
			t.order.Remove(e.element)
			delete(t.pending, id)
		}
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (t *PendingTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		close(t.done)
		t.closed = true
	}
}
