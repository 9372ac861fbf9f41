// Package tls adapts a crypto/tls.Conn the same way transport/tcp adapts
// a plain net.Conn.
package tls

import (
	"crypto/tls"
	"errors"
	"net"
	"os"
	"time"
)

// Conn wraps a *tls.Conn.
type Conn struct {
	*tls.Conn
	PollTimeout time.Duration
}

// New wraps conn with the default poll timeout.
func New(conn *tls.Conn) *Conn {
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
// blocking longer than PollTimeout.
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
