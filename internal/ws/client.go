package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	errSlowClient   = errors.New("client send buffer full")
	errClientClosed = errors.New("client closed")
)

// client owns one websocket connection's outbound side. Send enqueues; the
// write pump drains in order, so responses and notifications for a session
// are never reordered relative to each other.
type client struct {
	conn   *websocket.Conn
	onDrop func()

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, buffer int, onDrop func()) *client {
	if buffer <= 0 {
		buffer = 64
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, buffer),
		onDrop: onDrop,
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Send marshals and enqueues one outbound message. A full buffer means the
// client cannot keep up; the connection is torn down rather than letting one
// slow reader stall notifier deliveries.
func (c *client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClientClosed
	}
	select {
	case c.send <- data:
		c.mu.Unlock()
		return nil
	default:
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.onDrop != nil {
			c.onDrop()
		}
		return errSlowClient
	}
}

// close ends the write pump, which closes the connection. Idempotent.
func (c *client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}
