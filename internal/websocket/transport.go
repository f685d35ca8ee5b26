package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/cdpnet"
)

// closeGrace bounds how long CloseWithCode waits for the peer's close frame.
const closeGrace = 5 * time.Second

type outbound struct {
	data      []byte
	onWritten func(error)
}

// Transport owns one client websocket connection to a debugging endpoint.
type Transport struct {
	id          string
	url         string
	conn        *websocket.Conn
	ctx         context.Context
	cancel      context.CancelFunc
	sendCh      chan outbound
	mu          sync.RWMutex
	closed      bool
	closeOnce   sync.Once
	done        chan struct{}
	rateLimiter *rate.Limiter
	cfg         TransportConfig
	log         zerolog.Logger
}

// Dial opens a connection to url and starts the read and write pumps.
// Compression is never negotiated.
func Dial(ctx context.Context, url string, cfg *TransportConfig) (*Transport, error) {
	if cfg == nil {
		cfg = DefaultTransportConfig()
	}

	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		TLSClientConfig:   cfg.TLSConfig,
		EnableCompression: false,
	}

	conn, resp, err := dialer.DialContext(ctx, url, cfg.Header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s: %w", cdpnet.ErrMsgFailedToDial, url, err)
	}

	return newTransport(conn, url, cfg), nil
}

func newTransport(conn *websocket.Conn, url string, cfg *TransportConfig) *Transport {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.ReadLimit > 0 {
		conn.SetReadLimit(cfg.ReadLimit)
	}
	bufSize := cfg.SendBuffer
	if bufSize <= 0 {
		bufSize = 256
	}

	t := &Transport{
		id:          uuid.New().String(),
		url:         url,
		conn:        conn,
		ctx:         ctx,
		cancel:      cancel,
		sendCh:      make(chan outbound, bufSize),
		done:        make(chan struct{}),
		rateLimiter: cfg.RateLimitConfig.limiter(),
		cfg:         *cfg,
	}
	t.log = cfg.Logger.With().Str("transport_id", t.id).Str("url", url).Logger()

	if cfg.PongWait > 0 {
		conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		})
	}

	go t.writePump()
	go t.readPump()

	t.log.Debug().Msg("transport open")
	return t
}

// ID returns a unique identifier for the connection
func (t *Transport) ID() string {
	return t.id
}

// URL returns the endpoint the transport is connected to
func (t *Transport) URL() string {
	return t.url
}

// Done is closed once the connection is fully closed and OnClose has run.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// IsAlive returns true if the connection still accepts frames
func (t *Transport) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.closed
}

// Enqueue queues data for the write pump. Frames are written in the order
// Enqueue returns. onWritten, if set, runs on the write goroutine with the
// outcome of the write before any close handling triggered by a failure.
// It is not called for frames abandoned because the connection closed.
func (t *Transport) Enqueue(ctx context.Context, data []byte, onWritten func(error)) error {
	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return cdpnet.ErrConnectionClosed
	}

	select {
	case t.sendCh <- outbound{data: data, onWritten: onWritten}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ctx.Done():
		return cdpnet.ErrConnectionClosed
	}
}

// Send writes data and waits until the frame is on the wire.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	written := make(chan error, 1)
	if err := t.Enqueue(ctx, data, func(err error) { written <- err }); err != nil {
		return err
	}

	select {
	case err := <-written:
		return err
	case <-t.done:
		select {
		case err := <-written:
			return err
		default:
			return cdpnet.ErrConnectionClosed
		}
	}
}

// Close closes the connection gracefully.
//
// This is equivalent to calling CloseWithCode with websocket.CloseNormalClosure.
func (t *Transport) Close(ctx context.Context) error {
	return t.CloseWithCode(ctx, websocket.CloseNormalClosure, "")
}

// CloseWithCode sends a close frame and waits for the peer to acknowledge it
// or for ctx to end, whichever comes first. Closing an already closed
// transport returns immediately.
func (t *Transport) CloseWithCode(ctx context.Context, code int, reason string) error {
	select {
	case <-t.done:
		return nil
	default:
	}

	t.mu.Lock()
	first := !t.closed
	t.closed = true
	t.mu.Unlock()

	if first {
		message := websocket.FormatCloseMessage(code, reason)
		deadline := time.Now().Add(time.Second)
		if err := t.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
			t.conn.Close()
		}
	}

	timer := time.NewTimer(closeGrace)
	defer timer.Stop()

	select {
	case <-t.done:
	case <-ctx.Done():
		t.conn.Close()
		<-t.done
	case <-timer.C:
		t.conn.Close()
		<-t.done
	}
	return nil
}

func (t *Transport) finish(err error) {
	t.closeOnce.Do(func() {
		// Cancel before locking: Enqueue may hold the read lock while it
		// waits for queue space.
		t.cancel()

		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		t.conn.Close()

		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			t.log.Warn().Err(err).Msg("transport closed unexpectedly")
		} else {
			t.log.Debug().Msg("transport closed")
			err = nil
		}

		if t.cfg.OnClose != nil {
			t.cfg.OnClose(err)
		}
		close(t.done)
	})
}

// readPump delivers inbound frames until the connection fails or closes
func (t *Transport) readPump() {
	var readErr error
	defer func() {
		t.finish(readErr)
	}()

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		if t.cfg.PongWait > 0 {
			t.conn.SetReadDeadline(time.Now().Add(t.cfg.PongWait))
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if t.cfg.OnMessage != nil {
			t.cfg.OnMessage(data)
		}
	}
}

// writePump pumps frames from the send channel to the websocket connection
func (t *Transport) writePump() {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if t.cfg.PingInterval > 0 {
		ticker = time.NewTicker(t.cfg.PingInterval)
		tick = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case msg := <-t.sendCh:
			t.setWriteDeadline()
			err := t.conn.WriteMessage(websocket.TextMessage, msg.data)
			if msg.onWritten != nil {
				msg.onWritten(err)
			}
			if err != nil {
				t.log.Warn().Err(err).Msg("write failed")
				t.conn.Close()
				return
			}

		case <-tick:
			t.setWriteDeadline()
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.conn.Close()
				return
			}

		case <-t.ctx.Done():
			return
		}
	}
}

func (t *Transport) setWriteDeadline() {
	if t.cfg.WriteTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
}
