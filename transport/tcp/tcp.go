// Package tcp adapts a net.Conn into the SendAll/ReceiveAll non-blocking
// contract mqtt.Transport requires, using a read deadline to poll for
// data rather than blocking indefinitely on Read.
package tcp

import (
	"errors"
	"net"
	"os"
	"time"
)

// Conn wraps a net.Conn, most commonly one returned by net.Dial("tcp", ...).
type Conn struct {
	net.Conn
	// PollTimeout bounds how long ReceiveAll's underlying Read call may
	// block before treating the absence of data as "nothing available".
	// Zero disables the deadline (Read blocks until at least one byte);
	// callers targeting truly non-blocking Sync loops should set this.
	PollTimeout time.Duration
}

// New wraps conn with the default poll timeout.
func New(conn net.Conn) *Conn {
	return &Conn{Conn: conn, PollTimeout: 10 * time.Millisecond}
}

// SendAll writes every byte of p to the connection.
func (c *Conn) SendAll(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return c.Conn.Write(p)
}

// ReceiveAll reads whatever bytes are currently available into p, never
// blocking longer than PollTimeout. A timeout is not an error: it means
// zero bytes were available.
func (c *Conn) ReceiveAll(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if c.PollTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.PollTimeout)); err != nil {
			return 0, err
		}
	}
	n, err := c.Conn.Read(p)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, nil
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, nil
		}
		return n, err
	}
	return n, nil
}
