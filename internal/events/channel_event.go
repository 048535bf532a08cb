package events

// ChannelEvent provides pub/sub behavior using channels.
// It is meant for renderers running on their own goroutine: sends never block,
// a full channel simply misses that value (the next snapshot supersedes it).
// T is the type of the value sent to channels
type ChannelEvent[T any] struct {
	reg registry[chan<- T, T]
}

// NewChannelEvent creates a new ChannelEvent instance
// replayLast: if true, the ChannelEvent remembers the last Notify value
// and sends it to new listeners immediately if Notify has been called at least once
func NewChannelEvent[T any](replayLast bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{reg: newRegistry[chan<- T, T](replayLast)}
}

// Listen registers a channel to receive values when Notify is invoked
// Returns a deregistration function that can be called to remove the listener
func (e *ChannelEvent[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("channel cannot be nil")
	}

	id, last := e.reg.add(ch)
	if last != nil {
		trySend(ch, *last)
	}

	return func() { e.reg.remove(id) }
}

// Notify sends the provided value to all registered channels without blocking
func (e *ChannelEvent[T]) Notify(value T) {
	for _, ch := range e.reg.record(value) {
		trySend(ch, value)
	}
}

// Last returns the most recently notified value, if replay is enabled and Notify was called
func (e *ChannelEvent[T]) Last() (T, bool) {
	return e.reg.lastValue()
}

// ListenerCount returns the current number of registered listeners
func (e *ChannelEvent[T]) ListenerCount() int {
	return e.reg.count()
}

func trySend[T any](ch chan<- T, value T) {
	select {
	case ch <- value:
	default:
		// Channel is full, skip
	}
}
