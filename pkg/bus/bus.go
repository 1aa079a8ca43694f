// Package bus provides typed event feeds for broker-delivered events.
//
// Each event kind has its own Feed. Subscribing returns a cancel function,
// and any number of subscribers may listen to the same feed without
// replacing one another.
package bus

import "sync"

// Feed is a fan-out dispatcher for one event kind. The zero value is
// ready to use.
type Feed[T any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(T)
}

// Subscribe registers fn to receive every event published to the feed.
// The returned cancel function removes the subscription; calling it more
// than once is harmless.
func (f *Feed[T]) Subscribe(fn func(T)) func() {
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[int]func(T))
	}
	id := f.next
	f.next++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Publish delivers v to every current subscriber on the caller's
// goroutine. Delivery order across subscribers is not guaranteed.
func (f *Feed[T]) Publish(v T) {
	f.mu.RLock()
	fns := make([]func(T), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of active subscribers.
func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Events groups one feed per event kind delivered by the broker client.
type Events struct {
	Chat          Feed[ChatEvent]
	RoomList      Feed[RoomListEvent]
	Members       Feed[MembersEvent]
	RoomHistory   Feed[RoomHistoryEvent]
	SenderHistory Feed[SenderHistoryEvent]
	MemoryFind    Feed[MemoryFindEvent]
	Lifecycle     Feed[LifecycleEvent]
}

// NewEvents returns an empty event set.
func NewEvents() *Events {
	return &Events{}
}
