package fakepeer

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is one debugger connection accepted by the peer
type client struct {
	conn   *websocket.Conn
	sendCh chan []byte
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn:   conn,
		sendCh: make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *client) send(data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.sendCh <- data:
	case <-c.done:
	}
}

func (c *client) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.done)
	return true
}

func (c *client) drop() {
	if c.markClosed() {
		c.conn.Close()
	}
}

func (c *client) closeNormal() {
	if !c.markClosed() {
		return
	}
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	c.conn.Close()
}

// writePump pumps frames from the send channel to the websocket connection
func (c *client) writePump() {
	for {
		select {
		case data := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
