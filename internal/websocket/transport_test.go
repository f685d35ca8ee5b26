package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/luciancaetano/cdpnet"
)

// testPeer is a websocket server that records frames and runs a per-connection hook
type testPeer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	frames     []string
	extensions []string
	headers    []http.Header

	onConn func(conn *websocket.Conn)
}

func newTestPeer(t *testing.T, onConn func(conn *websocket.Conn)) *testPeer {
	t.Helper()

	p := &testPeer{
		upgrader: websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin:       func(r *http.Request) bool { return true },
		},
		onConn: onConn,
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *testPeer) url() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http") + "/devtools/page/1"
}

func (p *testPeer) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.extensions = append(p.extensions, r.Header.Get("Sec-WebSocket-Extensions"))
	p.headers = append(p.headers, r.Header.Clone())
	p.mu.Unlock()

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.mu.Unlock()

	if p.onConn != nil {
		p.onConn(conn)
		return
	}

	// echo
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		p.mu.Lock()
		p.frames = append(p.frames, string(data))
		p.mu.Unlock()
		if err := conn.WriteMessage(mt, data); err != nil {
			return
		}
	}
}

func (p *testPeer) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.frames...)
}

func testConfig() (*TransportConfig, chan string, chan error) {
	msgs := make(chan string, 1024)
	closed := make(chan error, 4)
	cfg := DefaultTransportConfig()
	cfg.OnMessage = func(data []byte) { msgs <- string(data) }
	cfg.OnClose = func(err error) { closed <- err }
	return cfg, msgs, closed
}

func dialTest(t *testing.T, url string, cfg *TransportConfig) *Transport {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := Dial(ctx, url, cfg)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { tr.Close(context.Background()) })
	return tr
}

// TestDefaultTransportConfig tests the connection defaults
func TestDefaultTransportConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultTransportConfig()
	if cfg.ReadLimit != 256*1024*1024 {
		t.Errorf("ReadLimit = %d, want 256 MiB", cfg.ReadLimit)
	}
	if cfg.SendBuffer != 256 {
		t.Errorf("SendBuffer = %d, want 256", cfg.SendBuffer)
	}
	if cfg.RateLimitConfig == nil || cfg.RateLimitConfig.Enabled {
		t.Error("outbound rate limiting should be disabled by default")
	}
	if cfg.HandshakeTimeout <= 0 || cfg.WriteTimeout <= 0 {
		t.Error("timeouts should be set")
	}
}

// TestRateLimiterCreation tests rate limiter creation with different configs
func TestRateLimiterCreation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *RateLimitConfig
		wantNil bool
	}{
		{name: "with rate limiting enabled", config: DefaultRateLimitConfig(), wantNil: false},
		{name: "with rate limiting disabled", config: NoRateLimit(), wantNil: true},
		{name: "with nil config", config: nil, wantNil: true},
		{
			name:    "with custom config enabled",
			config:  &RateLimitConfig{MessagesPerSecond: 10, Burst: 20, Enabled: true},
			wantNil: false,
		},
		{
			name:    "with custom config disabled",
			config:  &RateLimitConfig{MessagesPerSecond: 10, Burst: 20, Enabled: false},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limiter := tt.config.limiter()
			if (limiter == nil) != tt.wantNil {
				t.Errorf("rate limiter nil = %v, want nil = %v", limiter == nil, tt.wantNil)
			}
			if limiter != nil && !limiter.Allow() {
				t.Error("first request should be allowed")
			}
		})
	}
}

// TestDialFailure tests dial errors
func TestDialFailure(t *testing.T) {
	t.Parallel()

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(rejecting.Close)

	tests := []struct {
		name    string
		url     string
		wantSub string
	}{
		{name: "rejected handshake", url: "ws" + strings.TrimPrefix(rejecting.URL, "http") + "/devtools/page/X", wantSub: "status 404"},
		{name: "malformed url", url: "://nope", wantSub: cdpnet.ErrMsgFailedToDial},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Dial(context.Background(), tt.url, nil)
			if err == nil {
				t.Fatal("Dial() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Dial() error = %q, want it to contain %q", err, tt.wantSub)
			}
			if !strings.HasPrefix(err.Error(), cdpnet.ErrMsgFailedToDial) {
				t.Errorf("Dial() error = %q, want prefix %q", err, cdpnet.ErrMsgFailedToDial)
			}
		})
	}
}

// TestTransportNoCompression tests that compression is never offered
func TestTransportNoCompression(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, nil)
	cfg, _, _ := testConfig()
	cfg.Header = http.Header{"X-Debug-Client": []string{"cdpnet"}}
	dialTest(t, peer.url(), cfg)

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if len(peer.extensions) != 1 || peer.extensions[0] != "" {
		t.Errorf("Sec-WebSocket-Extensions = %q, want none", peer.extensions)
	}
	if got := peer.headers[0].Get("X-Debug-Client"); got != "cdpnet" {
		t.Errorf("custom header = %q, want cdpnet", got)
	}
}

// TestTransportRoundTrip tests frame delivery in both directions
func TestTransportRoundTrip(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, nil)
	cfg, msgs, _ := testConfig()
	tr := dialTest(t, peer.url(), cfg)

	if _, err := uuid.Parse(tr.ID()); err != nil {
		t.Errorf("ID() = %q is not a UUID", tr.ID())
	}
	if tr.URL() != peer.url() {
		t.Errorf("URL() = %q, want %q", tr.URL(), peer.url())
	}
	if !tr.IsAlive() {
		t.Error("IsAlive() = false after Dial")
	}

	if err := tr.Send(context.Background(), []byte(`{"id":1,"method":"A.b"}`)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case got := <-msgs:
		if got != `{"id":1,"method":"A.b"}` {
			t.Errorf("echo = %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("echo never arrived")
	}
}

// TestTransportPreservesOrder tests that frames are written in enqueue order
func TestTransportPreservesOrder(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, nil)
	cfg, msgs, _ := testConfig()
	tr := dialTest(t, peer.url(), cfg)

	const n = 200
	var written atomic.Int32
	for i := 0; i < n; i++ {
		err := tr.Enqueue(context.Background(), []byte(fmt.Sprintf("%d", i)), func(err error) {
			if err == nil {
				written.Add(1)
			}
		})
		if err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		select {
		case got := <-msgs:
			if got != fmt.Sprintf("%d", i) {
				t.Fatalf("frame %d = %s", i, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("frame %d never arrived", i)
		}
	}
	if written.Load() != n {
		t.Errorf("onWritten success count = %d, want %d", written.Load(), n)
	}
}

// TestTransportClose tests a local close
func TestTransportClose(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, nil)
	cfg, _, closed := testConfig()
	tr := dialTest(t, peer.url(), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case <-tr.Done():
	default:
		t.Fatal("Done() should be closed after Close returns")
	}
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("OnClose error = %v, want nil for a local close", err)
		}
	default:
		t.Fatal("OnClose should have run")
	}

	if tr.IsAlive() {
		t.Error("IsAlive() = true after Close")
	}
	if err := tr.Close(ctx); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := tr.Enqueue(ctx, []byte("x"), nil); !errors.Is(err, cdpnet.ErrConnectionClosed) {
		t.Errorf("Enqueue() after close error = %v, want ErrConnectionClosed", err)
	}
	if len(closed) != 0 {
		t.Error("OnClose ran more than once")
	}
}

// TestTransportPeerDrop tests that an abrupt disconnect reports an error
func TestTransportPeerDrop(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
		conn.Close()
	})
	cfg, _, closed := testConfig()
	tr := dialTest(t, peer.url(), cfg)

	if err := tr.Send(context.Background(), []byte("bye")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case err := <-closed:
		if err == nil {
			t.Error("OnClose error = nil, want the read error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnClose never ran")
	}
	<-tr.Done()
}

// TestTransportPeerNormalClose tests that a clean close from the peer reports no error
func TestTransportPeerNormalClose(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.ReadMessage()
		conn.Close()
	})
	cfg, _, closed := testConfig()
	dialTest(t, peer.url(), cfg)

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("OnClose error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnClose never ran")
	}
}

// TestTransportReadLimit tests that oversized inbound frames end the connection
func TestTransportReadLimit(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 64)))
		conn.ReadMessage()
	})
	cfg, msgs, closed := testConfig()
	cfg.ReadLimit = 16
	dialTest(t, peer.url(), cfg)

	select {
	case err := <-closed:
		if !errors.Is(err, websocket.ErrReadLimit) {
			t.Errorf("OnClose error = %v, want ErrReadLimit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnClose never ran")
	}
	if len(msgs) != 0 {
		t.Error("oversized frame should not be delivered")
	}
}

// TestTransportRateLimited tests that a rate limit paces writes
func TestTransportRateLimited(t *testing.T) {
	t.Parallel()

	peer := newTestPeer(t, nil)
	cfg, msgs, _ := testConfig()
	cfg.RateLimitConfig = &RateLimitConfig{MessagesPerSecond: 20, Burst: 1, Enabled: true}
	tr := dialTest(t, peer.url(), cfg)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := tr.Enqueue(context.Background(), []byte("x"), nil); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("5 frames at 20/s took %v, want at least 150ms", elapsed)
	}
	for i := 0; i < 5; i++ {
		<-msgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Enqueue(ctx, []byte("x"), nil); err == nil {
		t.Error("Enqueue() with cancelled context should fail while throttled")
	}
}

// BenchmarkTransportEnqueue benchmarks queueing frames on a live connection
func BenchmarkTransportEnqueue(b *testing.B) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	tr, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer tr.Close(context.Background())

	data := []byte(`{"id":1,"method":"Runtime.evaluate","params":{"expression":"1"}}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Enqueue(context.Background(), data, nil)
	}
}
