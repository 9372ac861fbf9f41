// Package ws adapts a github.com/gorilla/websocket connection to the
// SendAll/ReceiveAll contract, for brokers that only accept MQTT framed
// inside WebSocket binary messages (MQTT-over-WebSocket).
package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a *websocket.Conn. WebSocket is message, not byte, oriented:
// SendAll writes p as a single binary message; ReceiveAll may return part
// of a previously read message before asking the socket for a new one, so
// an MQTT packet that happened to span two WS messages is still delivered
// as a contiguous byte run to the caller.
type Conn struct {
	ws          *websocket.Conn
	leftover    []byte
	PollTimeout time.Duration
}

// New wraps conn with the default poll timeout.
func New(conn *websocket.Conn) *Conn {
	return &Conn{ws: conn, PollTimeout: 10 * time.Millisecond}
}

// SendAll writes p as a single binary WebSocket message.
func (c *Conn) SendAll(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReceiveAll copies buffered or freshly read message bytes into p without
// blocking longer than PollTimeout.
func (c *Conn) ReceiveAll(p []byte) (int, error) {
	if len(c.leftover) == 0 {
		if c.PollTimeout > 0 {
			if err := c.ws.SetReadDeadline(time.Now().Add(c.PollTimeout)); err != nil {
				return 0, err
			}
		}
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err) {
				return 0, err
			}
			ne, ok := err.(interface{ Timeout() bool })
			if ok && ne.Timeout() {
				return 0, nil
			}
			return 0, err
		}
		c.leftover = msg
	}
	n := copy(p, c.leftover)
	c.leftover = c.leftover[n:]
	return n, nil
}
