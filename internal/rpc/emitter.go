package rpc

import (
	"sync"
	"sync/atomic"
)

type listener[T any] struct {
	fn      func(T)
	once    bool
	removed atomic.Bool
}

// Emitter is a keyed listener table. Listeners registered for a key receive
// every value emitted under that key, in registration order.
type Emitter[T any] struct {
	mu        sync.Mutex
	listeners map[string][]*listener[T]
}

func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{listeners: make(map[string][]*listener[T])}
}

// On registers fn under key. The returned function detaches it; calling it
// more than once is harmless.
func (e *Emitter[T]) On(key string, fn func(T)) func() {
	return e.add(key, &listener[T]{fn: fn})
}

// Once registers fn for the next emission under key only.
func (e *Emitter[T]) Once(key string, fn func(T)) func() {
	return e.add(key, &listener[T]{fn: fn, once: true})
}

func (e *Emitter[T]) add(key string, l *listener[T]) func() {
	e.mu.Lock()
	e.listeners[key] = append(e.listeners[key], l)
	e.mu.Unlock()

	return func() {
		if l.removed.Swap(true) {
			return
		}
		e.remove(key, l)
	}
}

func (e *Emitter[T]) remove(key string, target *listener[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls := e.listeners[key]
	for i, l := range ls {
		if l == target {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) == 0 {
		delete(e.listeners, key)
	} else {
		e.listeners[key] = ls
	}
}

// Emit delivers v to the listeners of key and reports how many ran.
// One-shot listeners are detached before they run.
func (e *Emitter[T]) Emit(key string, v T) int {
	e.mu.Lock()
	ls := e.listeners[key]
	if len(ls) == 0 {
		e.mu.Unlock()
		return 0
	}
	snapshot := make([]*listener[T], len(ls))
	copy(snapshot, ls)
	e.mu.Unlock()

	n := 0
	for _, l := range snapshot {
		if l.once {
			if l.removed.Swap(true) {
				continue
			}
			e.remove(key, l)
		} else if l.removed.Load() {
			continue
		}
		l.fn(v)
		n++
	}
	return n
}

// ListenerCount returns the number of listeners attached to key.
func (e *Emitter[T]) ListenerCount(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[key])
}
