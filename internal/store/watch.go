package store

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is a handle on a realtime snapshot feed. Snapshots() yields
// the full current result set after every change; Close releases the
// subscriber. A consumer replacing its subscription for the same logical
// stream must Close the previous handle first so listeners do not
// accumulate across re-initialization.
type Subscription[T any] struct {
	id      string
	ch      chan []T
	closeFn func()
	once    sync.Once
}

// Snapshots returns the channel on which full snapshots are delivered.
// The channel is closed when the subscription is closed.
func (s *Subscription[T]) Snapshots() <-chan []T {
	return s.ch
}

// ID returns the subscription's unique handle id.
func (s *Subscription[T]) ID() string {
	return s.id
}

// Close detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(s.closeFn)
}

// snapshotHub fans full-collection snapshots out to subscribers, keyed by
// owner id. Sends are non-blocking: when a subscriber's buffer is full the
// queued snapshot is dropped in favor of the newest one, so a slow consumer
// only ever skips intermediate states.
type snapshotHub[T any] struct {
	mu          sync.Mutex
	subscribers map[string][]*Subscription[T]
	bufferSize  int
}

func newSnapshotHub[T any]() *snapshotHub[T] {
	return &snapshotHub[T]{
		subscribers: make(map[string][]*Subscription[T]),
		bufferSize:  16,
	}
}

// subscribe registers a new subscriber for the owner and returns its handle.
func (h *snapshotHub[T]) subscribe(ownerID string) *Subscription[T] {
	sub := &Subscription[T]{
		id: uuid.NewString(),
		ch: make(chan []T, 16),
	}
	sub.closeFn = func() {
		h.remove(ownerID, sub.id)
		close(sub.ch)
	}

	h.mu.Lock()
	h.subscribers[ownerID] = append(h.subscribers[ownerID], sub)
	h.mu.Unlock()

	return sub
}

func (h *snapshotHub[T]) remove(ownerID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[ownerID]
	for i, sub := range subs {
		if sub.id == subID {
			h.subscribers[ownerID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[ownerID]) == 0 {
		delete(h.subscribers, ownerID)
	}
}

// broadcast delivers a snapshot to every subscriber for the owner,
// coalescing when a subscriber's buffer is full.
func (h *snapshotHub[T]) broadcast(ownerID string, snapshot []T) {
	h.mu.Lock()
	subs := make([]*Subscription[T], len(h.subscribers[ownerID]))
	copy(subs, h.subscribers[ownerID])
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- snapshot:
		default:
			// Buffer full: drop the oldest queued snapshot and retry
			// with the newest. Each snapshot fully supersedes the
			// previous one, so skipping intermediates is safe.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snapshot:
			default:
			}
		}
	}
}

// hasSubscribers reports whether any subscriber is attached for the owner.
func (h *snapshotHub[T]) hasSubscribers(ownerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[ownerID]) > 0
}

// closeAll closes every subscription on the hub.
func (h *snapshotHub[T]) closeAll() {
	h.mu.Lock()
	var all []*Subscription[T]
	for _, subs := range h.subscribers {
		all = append(all, subs...)
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
}
