// Package faketransport provides an in-memory, non-blocking transport
// pair for exercising the session engine end to end without a real
// socket.
package faketransport

import "sync"

// Pipe is one direction of an in-memory byte pipe. ReceiveAll drains
// whatever SendAll has appended, never blocking: an empty pipe simply
// yields zero bytes, matching the non-blocking contract mqtt.Transport
// requires.
type Pipe struct {
	mu  sync.Mutex
	buf []byte
}

// SendAll appends p to the pipe.
func (p *Pipe) SendAll(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = append(p.buf, data...)
	return len(data), nil
}

// ReceiveAll drains up to len(dst) buffered bytes into dst.
func (p *Pipe) ReceiveAll(dst []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Conn is one endpoint of a pair of connected Pipes: SendAll writes to the
// peer's inbox, ReceiveAll drains this endpoint's own inbox.
type Conn struct {
	out *Pipe
	in  *Pipe
}

// NewPair returns two Conns wired so that whatever a sends, b receives,
// and vice versa — a loopback broker-and-client pair for tests.
func NewPair() (a, b *Conn) {
	p1, p2 := &Pipe{}, &Pipe{}
	a = &Conn{out: p1, in: p2}
	b = &Conn{out: p2, in: p1}
	return a, b
}

// SendAll writes p to the peer endpoint.
func (c *Conn) SendAll(p []byte) (int, error) { return c.out.SendAll(p) }

// ReceiveAll drains bytes sent by the peer endpoint.
func (c *Conn) ReceiveAll(p []byte) (int, error) { return c.in.ReceiveAll(p) }
