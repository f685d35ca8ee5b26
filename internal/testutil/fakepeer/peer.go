// Package fakepeer is an in-process remote debugging peer for tests. It
// serves the HTTP discovery endpoints and a websocket endpoint per target,
// answering commands through registered handlers.
package fakepeer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNoReply makes a handler leave the command unanswered.
var ErrNoReply = errors.New("fakepeer: no reply")

// ErrorObject is returned by handlers to answer with a protocol error.
type ErrorObject struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return e.Message
}

// Request is a command received from a client.
type Request struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	SessionID string          `json:"sessionId,omitempty"`
	Params    json.RawMessage `json:"params"`
}

// Handler answers one command. Handlers run in their own goroutine, so
// responses may be written in any order.
type Handler func(req Request) (any, error)

// Target is the discovery record served by /json/list.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title,omitempty"`
	URL                  string `json:"url,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl,omitempty"`
}

// Peer is a running fake peer.
type Peer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	clients  sync.Map // map[*client]struct{}
	handlers sync.Map // map[string]Handler

	mu         sync.Mutex
	targets    []Target
	descriptor []byte
	requests   []Request
	httpCalls  []string
	version    map[string]string
	nextTarget int

	requestCh chan Request
}

// New starts a peer with a single page target "P1" and a default
// descriptor.
func New() *Peer {
	p := &Peer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		descriptor: []byte(DefaultDescriptor),
		version: map[string]string{
			"Browser":          "FakePeer/1.0",
			"Protocol-Version": "1.3",
		},
		requestCh: make(chan Request, 1024),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json/list", p.handleList)
	mux.HandleFunc("/json", p.handleList)
	mux.HandleFunc("/json/version", p.handleVersion)
	mux.HandleFunc("/json/protocol", p.handleProtocol)
	mux.HandleFunc("/json/new", p.handleNew)
	mux.HandleFunc("/json/activate/", p.handleActivate)
	mux.HandleFunc("/json/close/", p.handleClose)
	mux.HandleFunc("/devtools/", p.handleWebSocket)
	p.srv = httptest.NewServer(mux)

	p.targets = []Target{
		{ID: "SW1", Type: "service_worker", Title: "worker"},
		{ID: "P1", Type: "page", Title: "first page", URL: "about:blank", WebSocketDebuggerURL: p.WebSocketURL("page", "P1")},
	}
	return p
}

// URL returns the http base URL.
func (p *Peer) URL() string {
	return p.srv.URL
}

// HostPort returns the host and port the peer listens on.
func (p *Peer) HostPort() (string, string) {
	u, _ := url.Parse(p.srv.URL)
	return u.Hostname(), u.Port()
}

// WebSocketURL returns the debugger URL of a target.
func (p *Peer) WebSocketURL(kind, id string) string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http") + "/devtools/" + kind + "/" + id
}

// Close disconnects every client and stops the server.
func (p *Peer) Close() {
	p.DropClients()
	p.srv.Close()
}

// Handle registers handler for method.
func (p *Peer) Handle(method string, handler Handler) {
	p.handlers.Store(method, handler)
}

// SetTargets replaces the discovery target list.
func (p *Peer) SetTargets(targets []Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets = targets
}

// SetDescriptor replaces the document served by /json/protocol.
func (p *Peer) SetDescriptor(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.descriptor = data
}

// Requests returns every command received so far.
func (p *Peer) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// HTTPCalls returns the method and path of every discovery request.
func (p *Peer) HTTPCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.httpCalls))
	copy(out, p.httpCalls)
	return out
}

// NextRequest waits for the next command received by the peer.
func (p *Peer) NextRequest(timeout time.Duration) (Request, error) {
	select {
	case req := <-p.requestCh:
		return req, nil
	case <-time.After(timeout):
		return Request{}, errors.New("fakepeer: timed out waiting for request")
	}
}

// Emit sends an event to every connected client.
func (p *Peer) Emit(method string, params any, sessionID string) error {
	frame := map[string]any{"method": method, "params": params}
	if sessionID != "" {
		frame["sessionId"] = sessionID
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	p.Broadcast(data)
	return nil
}

// Reply sends a response frame for id to every connected client.
func (p *Peer) Reply(id int64, result any) error {
	data, err := json.Marshal(map[string]any{"id": id, "result": result})
	if err != nil {
		return err
	}
	p.Broadcast(data)
	return nil
}

// Broadcast writes a raw frame to every connected client.
func (p *Peer) Broadcast(data []byte) {
	p.clients.Range(func(key, _ any) bool {
		key.(*client).send(data)
		return true
	})
}

// Clients returns the number of connected clients.
func (p *Peer) Clients() int {
	n := 0
	p.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// DropClients closes every client connection without a close handshake.
func (p *Peer) DropClients() {
	p.clients.Range(func(key, _ any) bool {
		key.(*client).drop()
		return true
	})
}

// CloseClients sends a normal close frame to every client.
func (p *Peer) CloseClients() {
	p.clients.Range(func(key, _ any) bool {
		key.(*client).closeNormal()
		return true
	})
}

func (p *Peer) recordHTTP(r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.httpCalls = append(p.httpCalls, r.Method+" "+r.URL.RequestURI())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (p *Peer) handleList(w http.ResponseWriter, r *http.Request) {
	p.recordHTTP(r)
	p.mu.Lock()
	targets := append([]Target(nil), p.targets...)
	p.mu.Unlock()
	writeJSON(w, targets)
}

func (p *Peer) handleVersion(w http.ResponseWriter, r *http.Request) {
	p.recordHTTP(r)
	p.mu.Lock()
	v := make(map[string]string, len(p.version))
	for k, val := range p.version {
		v[k] = val
	}
	p.mu.Unlock()
	v["webSocketDebuggerUrl"] = p.WebSocketURL("browser", "B1")
	writeJSON(w, v)
}

func (p *Peer) handleProtocol(w http.ResponseWriter, r *http.Request) {
	p.recordHTTP(r)
	p.mu.Lock()
	data := p.descriptor
	p.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (p *Peer) handleNew(w http.ResponseWriter, r *http.Request) {
	p.recordHTTP(r)
	if r.Method != http.MethodPut {
		http.Error(w, "Using unsafe HTTP verb GET to invoke /json/new", http.StatusMethodNotAllowed)
		return
	}

	p.mu.Lock()
	p.nextTarget++
	id := fmt.Sprintf("N%d", p.nextTarget)
	t := Target{ID: id, Type: "page", URL: r.URL.RawQuery, WebSocketDebuggerURL: p.WebSocketURL("page", id)}
	if t.URL == "" {
		t.URL = "about:blank"
	}
	p.targets = append(p.targets, t)
	p.mu.Unlock()

	writeJSON(w, t)
}

func (p *Peer) findTarget(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.targets {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (p *Peer) handleActivate(w http.ResponseWriter, r *http.Request) {
	p.recordHTTP(r)
	id := strings.TrimPrefix(r.URL.Path, "/json/activate/")
	if !p.findTarget(id) {
		http.Error(w, "No such target id: "+id, http.StatusNotFound)
		return
	}
	w.Write([]byte("Target activated"))
}

func (p *Peer) handleClose(w http.ResponseWriter, r *http.Request) {
	p.recordHTTP(r)
	id := strings.TrimPrefix(r.URL.Path, "/json/close/")
	if !p.findTarget(id) {
		http.Error(w, "No such target id: "+id, http.StatusNotFound)
		return
	}

	p.mu.Lock()
	kept := p.targets[:0]
	for _, t := range p.targets {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	p.targets = kept
	p.mu.Unlock()

	w.Write([]byte("Target is closing"))
}

// handleWebSocket upgrades a debugger connection and serves its commands
func (p *Peer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := newClient(conn)
	p.clients.Store(c, struct{}{})
	go p.serve(c)
}

func (p *Peer) serve(c *client) {
	defer func() {
		p.clients.Delete(c)
		c.drop()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		p.mu.Lock()
		p.requests = append(p.requests, req)
		p.mu.Unlock()
		select {
		case p.requestCh <- req:
		default:
		}

		go p.answer(c, req)
	}
}

func (p *Peer) answer(c *client, req Request) {
	var (
		result any
		err    error
	)
	if h, ok := p.handlers.Load(req.Method); ok {
		result, err = h.(Handler)(req)
	} else {
		err = &ErrorObject{Code: -32601, Message: fmt.Sprintf("'%s' wasn't found", req.Method)}
	}

	if errors.Is(err, ErrNoReply) {
		return
	}

	resp := map[string]any{"id": req.ID}
	if req.SessionID != "" {
		resp["sessionId"] = req.SessionID
	}
	var eo *ErrorObject
	switch {
	case errors.As(err, &eo):
		resp["error"] = eo
	case err != nil:
		resp["error"] = &ErrorObject{Code: -32000, Message: err.Error()}
	case result != nil:
		resp["result"] = result
	}

	data, merr := json.Marshal(resp)
	if merr != nil {
		return
	}
	c.send(data)
}
