package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Connection wraps a gorilla websocket connection behind the channel
// interface the connection registry consumes. Writes are serialized; the
// registry's watchdog and the HTTP push path both write concurrently.
type Connection struct {
	socket *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

func NewConnection(socket *websocket.Conn) *Connection {
	return &Connection{socket: socket}
}

// SendText writes a text frame.
func (c *Connection) SendText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("connection already closed")
	}

	_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.socket.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with the given code and reason, then tears the
// socket down. Safe to call more than once.
func (c *Connection) Close(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	message := websocket.FormatCloseMessage(code, reason)
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.socket.WriteMessage(websocket.CloseMessage, message)
	return c.socket.Close()
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// ReadMessage blocks for the next frame from the client.
func (c *Connection) ReadMessage() ([]byte, error) {
	_, payload, err := c.socket.ReadMessage()
	return payload, err
}
