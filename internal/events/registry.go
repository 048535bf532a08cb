package events

import (
	"sync"
)

// registry keeps the listener set shared by CallbackEvent and ChannelEvent.
// L is the listener type (a callback or a channel), T the event payload.
// Listeners are kept in registration order so delivery order is stable.
type registry[L any, T any] struct {
	mu         sync.RWMutex
	ids        []uint64
	listeners  map[uint64]L
	nextID     uint64
	replayLast bool
	last       *T
}

func newRegistry[L any, T any](replayLast bool) registry[L, T] {
	return registry[L, T]{
		listeners:  make(map[uint64]L),
		replayLast: replayLast,
	}
}

// add registers a listener and returns its id plus a copy of the last
// notified value when it should be replayed to the new listener
func (r *registry[L, T]) add(listener L) (uint64, *T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.ids = append(r.ids, id)
	r.listeners[id] = listener

	if !r.replayLast || r.last == nil {
		return id, nil
	}
	lastCopy := new(T)
	*lastCopy = *r.last
	return id, lastCopy
}

// remove is idempotent
func (r *registry[L, T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listeners[id]; !ok {
		return
	}
	delete(r.listeners, id)
	for i, existing := range r.ids {
		if existing == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
}

// record stores value as the last event (when replay is enabled) and returns
// a snapshot of the listeners in registration order, to be called outside the lock
func (r *registry[L, T]) record(value T) []L {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.replayLast {
		if r.last == nil {
			r.last = new(T)
		}
		*r.last = value
	}

	snapshot := make([]L, 0, len(r.ids))
	for _, id := range r.ids {
		snapshot = append(snapshot, r.listeners[id])
	}
	return snapshot
}

func (r *registry[L, T]) lastValue() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.last == nil {
		return zero, false
	}
	return *r.last, true
}

func (r *registry[L, T]) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
