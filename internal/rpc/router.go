package rpc

import (
	"github.com/luciancaetano/cdpnet"
)

// Router fans inbound events out to subscribers. Every event is emitted
// under SignalEvent, under its method name and, when it carries a session,
// under "method.sessionId".
//
// One-shot waiters live in their own table and are notified by Notify, so
// they can be served from a different goroutine than regular listeners.
type Router struct {
	emitter *Emitter[cdpnet.Event]
	waiters *Emitter[cdpnet.Event]
}

func NewRouter() *Router {
	return &Router{
		emitter: NewEmitter[cdpnet.Event](),
		waiters: NewEmitter[cdpnet.Event](),
	}
}

// EventKey returns the signal name a subscription listens on.
func EventKey(method, sessionID string) string {
	if sessionID == "" {
		return method
	}
	return method + "." + sessionID
}

// Dispatch emits ev under all of its keys.
func (r *Router) Dispatch(ev cdpnet.Event) {
	r.emitter.Emit(cdpnet.SignalEvent, ev)
	r.emitter.Emit(ev.Method, ev)
	if ev.SessionID != "" {
		r.emitter.Emit(EventKey(ev.Method, ev.SessionID), ev)
	}
}

func (r *Router) Subscribe(method, sessionID string, handler func(cdpnet.Event)) func() {
	return r.emitter.On(EventKey(method, sessionID), handler)
}

// Once registers a waiter for the next occurrence of method. Waiters are
// served by Notify, not Dispatch.
func (r *Router) Once(method, sessionID string, handler func(cdpnet.Event)) func() {
	return r.waiters.Once(EventKey(method, sessionID), handler)
}

// Notify hands ev to the one-shot waiters of its keys.
func (r *Router) Notify(ev cdpnet.Event) {
	r.waiters.Emit(ev.Method, ev)
	if ev.SessionID != "" {
		r.waiters.Emit(EventKey(ev.Method, ev.SessionID), ev)
	}
}

// OnEvent registers a catch-all listener.
func (r *Router) OnEvent(handler func(cdpnet.Event)) func() {
	return r.emitter.On(cdpnet.SignalEvent, handler)
}

// Listeners returns the number of subscribers and waiters for method and
// sessionID.
func (r *Router) Listeners(method, sessionID string) int {
	key := EventKey(method, sessionID)
	return r.emitter.ListenerCount(key) + r.waiters.ListenerCount(key)
}
