package rpc

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/protocol"
)

func newBlockingCall(method string) *call {
	return &call{req: cdpnet.Request{Method: method}, ch: make(chan result, 1)}
}

func decode(t *testing.T, frame string) *protocol.Message {
	t.Helper()
	msg, err := protocol.Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", frame, err)
	}
	return &msg
}

// TestEngineAssignsMonotonicIDs tests that identifiers start at 1 and never repeat
func TestEngineAssignsMonotonicIDs(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, nil)
	for want := int64(1); want <= 5; want++ {
		if got := e.register(newBlockingCall("A.b")); got != want {
			t.Fatalf("register() = %d, want %d", got, want)
		}
	}
	if got := e.LastID(); got != 5 {
		t.Errorf("LastID() = %d, want 5", got)
	}

	e.FailAll(cdpnet.ErrConnectionClosed)
	if got := e.register(newBlockingCall("A.b")); got != 6 {
		t.Errorf("register() after FailAll = %d, want 6", got)
	}
	if got := e.LastID(); got != 6 {
		t.Errorf("LastID() after FailAll = %d, want 6", got)
	}
}

// TestEngineResolveResult tests that a result frame completes the matching call
func TestEngineResolveResult(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, nil)
	calls := make([]*call, 7)
	for i := range calls {
		calls[i] = newBlockingCall("Foo.bar")
		e.register(calls[i])
	}

	if !e.Resolve(decode(t, `{"id":7,"result":{"ok":true}}`)) {
		t.Fatal("Resolve() = false, want true")
	}

	r := <-calls[6].ch
	if r.err != nil || string(r.value) != `{"ok":true}` {
		t.Errorf("call 7 = %s, %v", r.value, r.err)
	}
	for i := 0; i < 6; i++ {
		select {
		case r := <-calls[i].ch:
			t.Errorf("call %d resolved unexpectedly: %+v", i+1, r)
		default:
		}
	}
	if e.Pending() != 6 {
		t.Errorf("Pending() = %d, want 6", e.Pending())
	}
}

// TestEngineResolveError tests that an error payload wins over any result
func TestEngineResolveError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		frame   string
		wantMsg string
	}{
		{name: "message only", frame: `{"id":1,"error":{"message":"bad"}}`, wantMsg: "bad"},
		{name: "message with data", frame: `{"id":1,"error":{"message":"bad","data":"more"}}`, wantMsg: "bad (more)"},
		{name: "error beats result", frame: `{"id":1,"result":{"ok":true},"error":{"message":"bad"}}`, wantMsg: "bad"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewEngine(nil, nil)
			c := &call{
				req: cdpnet.Request{Method: "Foo.bar", Params: map[string]int{"x": 1}, SessionID: "S"},
				ch:  make(chan result, 1),
			}
			e.register(c)
			e.Resolve(decode(t, tt.frame))

			r := <-c.ch
			var perr *cdpnet.ProtocolError
			if !errors.As(r.err, &perr) {
				t.Fatalf("error = %v, want *ProtocolError", r.err)
			}
			if perr.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", perr.Error(), tt.wantMsg)
			}
			if perr.Request.Method != "Foo.bar" || perr.Request.SessionID != "S" {
				t.Errorf("Request = %+v", perr.Request)
			}
			if r.value != nil {
				t.Errorf("value = %s, want nil", r.value)
			}
		})
	}
}

// TestEngineResolveMissingResult tests that an absent result becomes an empty object
func TestEngineResolveMissingResult(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, nil)
	c := newBlockingCall("Page.enable")
	e.register(c)
	e.Resolve(decode(t, `{"id":1}`))

	r := <-c.ch
	if r.err != nil || string(r.value) != `{}` {
		t.Errorf("result = %s, %v; want {}", r.value, r.err)
	}
}

// TestEngineDropsUnknownID tests that stale or unknown responses are ignored
func TestEngineDropsUnknownID(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, nil)
	c := newBlockingCall("A.b")
	e.register(c)

	if e.Resolve(decode(t, `{"id":99,"result":{}}`)) {
		t.Error("Resolve() of unknown id = true, want false")
	}
	if !e.Resolve(decode(t, `{"id":1,"result":{}}`)) {
		t.Fatal("Resolve() = false, want true")
	}
	if e.Resolve(decode(t, `{"id":1,"result":{}}`)) {
		t.Error("duplicate Resolve() = true, want false")
	}

	<-c.ch
	select {
	case r := <-c.ch:
		t.Errorf("call resolved twice: %+v", r)
	default:
	}
}

// TestEngineDrained tests that the drained signal fires only when the table empties
func TestEngineDrained(t *testing.T) {
	t.Parallel()

	drained := 0
	e := NewEngine(nil, func() { drained++ })
	e.register(newBlockingCall("A.b"))
	e.register(newBlockingCall("A.c"))

	e.Resolve(decode(t, `{"id":1,"result":{}}`))
	if drained != 0 {
		t.Errorf("drained after first response = %d, want 0", drained)
	}
	e.Resolve(decode(t, `{"id":2,"result":{}}`))
	if drained != 1 {
		t.Errorf("drained after last response = %d, want 1", drained)
	}

	e.Resolve(decode(t, `{"id":3,"result":{}}`))
	if drained != 1 {
		t.Errorf("unknown response must not signal drained, got %d", drained)
	}
}

// TestEngineFailAll tests that closing resolves every pending call once
func TestEngineFailAll(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		callback []error
	)
	e := NewEngine(nil, nil)

	const k = 10
	blocking := make([]*call, k)
	for i := range blocking {
		blocking[i] = newBlockingCall("A.b")
		e.register(blocking[i])
	}
	for i := 0; i < k; i++ {
		e.register(&call{req: cdpnet.Request{Method: "A.c"}, cb: func(_ json.RawMessage, err error) {
			mu.Lock()
			callback = append(callback, err)
			mu.Unlock()
		}})
	}

	if n := e.FailAll(cdpnet.ErrConnectionClosed); n != 2*k {
		t.Errorf("FailAll() = %d, want %d", n, 2*k)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", e.Pending())
	}

	for i, c := range blocking {
		if r := <-c.ch; !errors.Is(r.err, cdpnet.ErrConnectionClosed) {
			t.Errorf("call %d error = %v, want ErrConnectionClosed", i, r.err)
		}
	}
	if len(callback) != k {
		t.Fatalf("callbacks = %d, want %d", len(callback), k)
	}
	for _, err := range callback {
		if !errors.Is(err, cdpnet.ErrConnectionClosed) {
			t.Errorf("callback error = %v, want ErrConnectionClosed", err)
		}
	}

	if e.FailAll(cdpnet.ErrConnectionClosed) != 0 {
		t.Error("second FailAll() should find nothing pending")
	}
}

// TestEngineFailAfterResolve tests that a late failure cannot resolve a call twice
func TestEngineFailAfterResolve(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, nil)
	c := newBlockingCall("A.b")
	id := e.register(c)
	e.Resolve(decode(t, `{"id":1,"result":{}}`))

	if e.Fail(id, errors.New("late")) {
		t.Error("Fail() after Resolve() = true, want false")
	}
	if r := <-c.ch; r.err != nil {
		t.Errorf("error = %v, want nil", r.err)
	}
}
