package rpc

import (
	"encoding/json"
	"sync"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/protocol"
)

type result struct {
	value json.RawMessage
	err   error
}

// call is one outstanding command. Exactly one of ch and cb is set.
type call struct {
	id  int64
	req cdpnet.Request
	ch  chan result
	cb  func(json.RawMessage, error)
}

// Engine assigns command identifiers and owns the pending call table.
// Every registered call is completed exactly once: by its response, by a
// write failure, or by FailAll.
type Engine struct {
	mu      sync.Mutex
	nextID  int64
	pending map[int64]*call

	// post runs callback completions off the read goroutine.
	post func(func())
	// onDrained fires after a response empties the pending table.
	onDrained func()
}

func NewEngine(post func(func()), onDrained func()) *Engine {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Engine{
		pending:   make(map[int64]*call),
		post:      post,
		onDrained: onDrained,
	}
}

// register allocates the next identifier and records c under it.
func (e *Engine) register(c *call) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	c.id = e.nextID
	e.pending[c.id] = c
	return c.id
}

// take removes and returns the pending call for id.
func (e *Engine) take(id int64) (*call, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.pending[id]
	if ok {
		delete(e.pending, id)
	}
	return c, ok
}

// discard drops id without completing it. Used when a command never made
// it onto the wire and the caller is told directly.
func (e *Engine) discard(id int64) bool {
	_, ok := e.take(id)
	return ok
}

// Fail completes id with err if it is still pending.
func (e *Engine) Fail(id int64, err error) bool {
	c, ok := e.take(id)
	if !ok {
		return false
	}
	e.complete(c, nil, err)
	return true
}

// Resolve completes the call matching a response frame. Frames for unknown
// or already completed identifiers are dropped and Resolve reports false.
func (e *Engine) Resolve(msg *protocol.Message) bool {
	e.mu.Lock()
	c, ok := e.pending[msg.ID]
	if ok {
		delete(e.pending, msg.ID)
	}
	drained := ok && len(e.pending) == 0
	e.mu.Unlock()

	if !ok {
		return false
	}

	if msg.Error != nil {
		e.complete(c, nil, &cdpnet.ProtocolError{Request: c.req, Response: msg.Error.Response()})
	} else {
		e.complete(c, msg.ResultOrEmpty(), nil)
	}

	if drained && e.onDrained != nil {
		e.onDrained()
	}
	return true
}

// FailAll completes every pending call with err and empties the table.
func (e *Engine) FailAll(err error) int {
	e.mu.Lock()
	calls := e.pending
	e.pending = make(map[int64]*call)
	e.mu.Unlock()

	for _, c := range calls {
		e.complete(c, nil, err)
	}
	return len(calls)
}

// Pending returns the number of outstanding calls.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// LastID returns the most recently allocated identifier.
func (e *Engine) LastID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextID
}

func (e *Engine) complete(c *call, value json.RawMessage, err error) {
	if c.ch != nil {
		c.ch <- result{value: value, err: err}
		return
	}
	if c.cb != nil {
		cb := c.cb
		e.post(func() { cb(value, err) })
	}
}
