package mqtt

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SessionConfig configures a Session. Buffers are caller-owned and never
// grown: SendBuffer backs the outbound arena (queue.go) and RecvBuffer
// backs one inbound packet at a time.
type SessionConfig struct {
	SendBuffer []byte
	RecvBuffer []byte

	// ClientID is sent verbatim in CONNECT. Required.
	ClientID string

	KeepAlive time.Duration
	// ResponseTimeout bounds how long the session waits for an ack before
	// retransmitting a QoS1/QoS2 PUBLISH with its DUP bit set.
	ResponseTimeout time.Duration
	// PingBackoffFraction is the fraction of KeepAlive that must elapse
	// with no outbound traffic before Sync sends a PINGREQ. Defaults to
	// 0.75, but exposed for tuning during reconnection storms.
	PingBackoffFraction float64

	Log *logrus.Logger
}

// SessionOption mutates a SessionConfig, the usual functional-options
// pattern for configuring a Session.
type SessionOption func(*SessionConfig)

// DefaultSessionConfig returns the option that fills in every zero-valued
// field of cfg with its default. Apply it last so explicit options are
// not overridden.
func DefaultSessionConfig() SessionOption {
	return func(c *SessionConfig) {
		if len(c.SendBuffer) == 0 {
			c.SendBuffer = make([]byte, defaultBufferLen)
		}
		if len(c.RecvBuffer) == 0 {
			c.RecvBuffer = make([]byte, defaultBufferLen)
		}
		if c.KeepAlive == 0 {
			c.KeepAlive = 60 * time.Second
		}
		if c.ResponseTimeout == 0 {
			c.ResponseTimeout = 30 * time.Second
		}
		if c.PingBackoffFraction == 0 {
			c.PingBackoffFraction = 0.75
		}
	}
}

// WithBuffers sets the send and receive arenas explicitly, e.g. to place
// them in statically allocated memory on a constrained target.
func WithBuffers(send, recv []byte) SessionOption {
	return func(c *SessionConfig) {
		c.SendBuffer = send
		c.RecvBuffer = recv
	}
}

// WithClientID sets the CONNECT client identifier.
func WithClientID(id string) SessionOption {
	return func(c *SessionConfig) { c.ClientID = id }
}

// WithKeepAlive sets the MQTT keep-alive interval.
func WithKeepAlive(d time.Duration) SessionOption {
	return func(c *SessionConfig) { c.KeepAlive = d }
}

// WithLogger injects a logrus logger. A nil logger (the default) is
// replaced with a disabled one the first time Session.Init runs.
func WithLogger(log *logrus.Logger) SessionOption {
	return func(c *SessionConfig) { c.Log = log }
}

func newSessionConfig(opts ...SessionOption) SessionConfig {
	var cfg SessionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	DefaultSessionConfig()(&cfg)
	return cfg
}
