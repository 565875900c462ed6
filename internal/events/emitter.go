package events

import "sync"

// Listener receives emitted values.
type Listener[T any] func(T)

// Emitter fans values out to current subscribers, in subscription order.
// Delivery is synchronous: Emit returns after every listener has run.
type Emitter[T any] struct {
	mu        sync.Mutex
	listeners []entry[T]
	nextID    uint64
}

type entry[T any] struct {
	id uint64
	fn Listener[T]
}

// NewEmitter creates an empty emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe registers a listener and returns a function that removes it.
// Unsubscribing is idempotent.
func (e *Emitter[T]) Subscribe(fn Listener[T]) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, entry[T]{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers v to every listener subscribed at call time.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	snapshot := make([]entry[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(v)
	}
}

// Len returns the number of current subscribers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}
