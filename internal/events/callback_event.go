package events

// CallbackEvent provides synchronous pub/sub with type-safe callbacks.
// Notify runs every listener to completion, in registration order, before returning,
// which is what the planning core relies on for ordered event dispatch.
// T is the type of the argument passed to callback functions
type CallbackEvent[T any] struct {
	reg registry[func(T), T]
}

// NewCallbackEvent creates a new CallbackEvent instance
// replayLast: if true, the CallbackEvent remembers the last Notify value
// and calls new listeners immediately with it if Notify has been called at least once
func NewCallbackEvent[T any](replayLast bool) *CallbackEvent[T] {
	return &CallbackEvent[T]{reg: newRegistry[func(T), T](replayLast)}
}

// Listen registers a callback function to be called when Notify is invoked
// Returns a deregistration function that can be called to remove the listener
func (e *CallbackEvent[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("callback cannot be nil")
	}

	id, last := e.reg.add(callback)

	// Replay outside the lock so the callback may call back into the event
	if last != nil {
		callback(*last)
	}

	return func() { e.reg.remove(id) }
}

// Notify calls all registered listener callbacks with the provided value
func (e *CallbackEvent[T]) Notify(value T) {
	for _, callback := range e.reg.record(value) {
		callback(value)
	}
}

// Last returns the most recently notified value, if replay is enabled and Notify was called
func (e *CallbackEvent[T]) Last() (T, bool) {
	return e.reg.lastValue()
}

// ListenerCount returns the current number of registered listeners
func (e *CallbackEvent[T]) ListenerCount() int {
	return e.reg.count()
}
