package mqtt

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport is the non-blocking byte pipe a Session drives. SendAll must
// write every byte of p or return an error; ReceiveAll may return fewer
// bytes than len(p) (including zero) without error to mean "nothing
// available right now" — the transport must never block waiting for more.
// transport/tcp, transport/tls and transport/ws implement this interface
// over real sockets; transport/faketransport implements it in memory for
// tests.
type Transport interface {
	SendAll(p []byte) (int, error)
	ReceiveAll(p []byte) (int, error)
}

// Session drives a single MQTT 3.1.1 connection's CONNECT/PUBLISH/
// SUBSCRIBE/UNSUBSCRIBE/PING/DISCONNECT exchanges and their acknowledgement
// bookkeeping. It never grows or replaces the caller-supplied send and
// receive buffers. It is not allocation-free: decoded topic strings, log
// entries, error values and growth of the send queue's record slice are
// ordinary heap allocations.
//
// A Session is safe for concurrent use; all exported methods take a
// single internal mutex guarding every field, since the send queue and
// session state here are not cleanly separable into independent
// send-side/receive-side locks.
type Session struct {
	mu sync.Mutex

	Transport Transport
	Log       *logrus.Logger
	Metrics   *Metrics

	// OnPublish, if set, is invoked synchronously from Sync for every
	// incoming PUBLISH after this session has queued the ack (if any) the
	// QoS level requires; Sync sends that ack before it returns.
	OnPublish func(topic string, payload []byte, qos QoSLevel, retain bool)

	cfg SessionConfig
	sq  sendQueue
	pid lfsr

	connected bool
	err       ErrorKind

	lastTxAt            time.Time
	lastRxAt            time.Time
	pingOutstanding     bool
	typicalResponseTime time.Duration
	numberOfTimeouts    int
}

// NumberOfTimeouts returns the count of retransmissions Sync has performed
// due to a response timeout expiring.
func (s *Session) NumberOfTimeouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numberOfTimeouts
}

// Init prepares s for use with cfg, applying every SessionOption in order
// followed by DefaultSessionConfig for anything left zero. Init must be
// called exactly once, before any other Session method.
func (s *Session) Init(opts ...SessionOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = newSessionConfig(opts...)
	if s.cfg.ClientID == "" {
		return newError(KindConnectNullClientID, "")
	}
	s.sq = newSendQueue(s.cfg.SendBuffer)
	s.pid = newLFSR()
	if s.Log == nil {
		s.Log = s.cfg.Log
	}
	if s.Log == nil {
		s.Log = discardLogger()
	}
	return nil
}

// sticky returns the session's current sticky error, if any, as an error.
// Once set, a Session refuses every further enqueue operation until
// clearError is called.
func (s *Session) sticky() error {
	if s.err != KindOK {
		return s.err
	}
	return nil
}

func (s *Session) fail(kind ErrorKind, detail string) error {
	s.err = kind
	s.connected = false
	s.Log.WithFields(logrus.Fields{"kind": kind, "detail": detail}).Error("mqtt: session entering sticky error state")
	return newError(kind, detail)
}

// clearError clears the sticky error set by a previous failure, allowing
// the session to be reused after reconnecting. It is the hook the
// reconnect package's Policy calls after a fresh transport is dialed;
// ordinary callers should not need it.
func (s *Session) clearError() {
	s.err = KindOK
	s.connected = false
	s.pingOutstanding = false
	s.sq.Reset()
}

// ClearError implements the reconnect.Session interface: it is called by
// a reconnect.Policy once a fresh Transport has been installed via
// SetTransport, clearing the sticky error so Sync resumes normal
// operation. Re-issuing CONNECT (and any SUBSCRIBEs) is the caller's
// responsibility. Resetting the send queue here, discarding any
// still-outstanding records, is a deliberate choice recorded in
// DESIGN.md: once the transport changes there is no way to know which
// in-flight packet ids the broker still expects.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearError()
}

// Failed reports whether the session currently carries a sticky error,
// i.e. whether it needs a reconnect.Policy to run before any further
// enqueue will succeed.
func (s *Session) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != KindOK
}

// SetTransport installs t as the Transport Sync drives, implementing the
// reconnect.Session interface hook a Policy calls after dialing a fresh
// connection.
func (s *Session) SetTransport(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transport = t
}

// Connected reports whether the last Sync observed a CONNACK with
// ReturnCodeConnAccepted and no DISCONNECT/failure since.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Connect enqueues a CONNECT packet built from v. The session is not
// guaranteed connected when Connect returns: Connect only enqueues the
// packet, since Sync owns all actual I/O. Callers call Sync in a loop
// (or use the refresher package) and poll Connected.
func (s *Session) Connect(v VariablesConnect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky(); err != nil {
		return err
	}
	if v.ClientID == "" {
		v.ClientID = s.cfg.ClientID
	}
	if v.KeepAlive == 0 {
		v.KeepAlive = uint16(s.cfg.KeepAlive / time.Second)
	}
	size := v.size()
	hdr := Header{Type: PacketConnect, RemainingLength: uint32(size)}
	return s.enqueue(hdr, 0, func(body []byte) (int, error) { return packConnect(body, &v) })
}

// Publish enqueues a PUBLISH packet. At QoS0 no acknowledgement is
// expected and packetID is always 0; at QoS1/QoS2 the returned packetID
// identifies the in-flight message for the caller's own bookkeeping.
func (s *Session) Publish(topic string, payload []byte, qos QoSLevel, retain bool) (packetID uint16, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky(); err != nil {
		return 0, err
	}
	if !qos.IsValid() {
		return 0, newError(KindPublishForbiddenQoS, qos.String())
	}
	var pi uint16
	if qos != QoS0 {
		pi = s.pid.next()
	}
	v := VariablesPublish{TopicName: topic, PacketIdentifier: pi, Payload: payload}
	flags := NewPublishFlags(false, qos, retain)
	hdr := Header{Type: PacketPublish, Flags: flags, RemainingLength: uint32(v.size(qos))}
	err = s.enqueue(hdr, pi, func(body []byte) (int, error) { return packPublish(body, v, qos) })
	return pi, err
}

// Subscribe enqueues a SUBSCRIBE packet for the given filters, returning
// the packet identifier the broker's SUBACK will echo back.
func (s *Session) Subscribe(filters []SubscribeRequest) (packetID uint16, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky(); err != nil {
		return 0, err
	}
	pi := s.pid.next()
	v := VariablesSubscribe{PacketIdentifier: pi, TopicFilters: filters}
	if verr := v.validate(); verr != nil {
		return 0, verr
	}
	hdr := Header{Type: PacketSubscribe, Flags: flagsPubrelSubUnsub, RemainingLength: uint32(v.size())}
	err = s.enqueue(hdr, pi, func(body []byte) (int, error) { return packSubscribe(body, v) })
	return pi, err
}

// Unsubscribe enqueues an UNSUBSCRIBE packet for the given topic filters.
func (s *Session) Unsubscribe(topics []string) (packetID uint16, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky(); err != nil {
		return 0, err
	}
	pi := s.pid.next()
	v := VariablesUnsubscribe{PacketIdentifier: pi, TopicFilters: topics}
	if verr := v.validate(); verr != nil {
		return 0, verr
	}
	hdr := Header{Type: PacketUnsubscribe, Flags: flagsPubrelSubUnsub, RemainingLength: uint32(v.size())}
	err = s.enqueue(hdr, pi, func(body []byte) (int, error) { return packUnsubscribe(body, v) })
	return pi, err
}

// Ping enqueues a PINGREQ. Sync calls this on its own to satisfy the
// keep-alive interval; exported so callers needing an immediate liveness
// probe can trigger one directly.
func (s *Session) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingLocked()
}

func (s *Session) pingLocked() error {
	if err := s.sticky(); err != nil {
		return err
	}
	hdr := Header{Type: PacketPingreq}
	err := s.enqueue(hdr, 0, func(body []byte) (int, error) { return 0, nil })
	if err == nil {
		s.pingOutstanding = true
	}
	return err
}

// Disconnect enqueues a DISCONNECT packet, the client's clean-shutdown
// signal. The caller is expected to Sync once more to flush it and then
// close the underlying Transport.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky(); err != nil {
		return err
	}
	hdr := Header{Type: PacketDisconnect}
	err := s.enqueue(hdr, 0, func(body []byte) (int, error) { return 0, nil })
	if err == nil {
		s.connected = false
	}
	return err
}

// enqueue reserves room in the send queue for hdr plus its body, packs
// both, and records a queuedMessage so acknowledgement and retransmission
// can track it. packBody must write exactly hdr.RemainingLength bytes.
func (s *Session) enqueue(hdr Header, packetID uint16, packBody func([]byte) (int, error)) error {
	total := hdr.Size() + int(hdr.RemainingLength)
	raw := s.sq.Register(total, hdr.Type, packetID)
	if raw == nil {
		s.sq.Compact()
		raw = s.sq.Register(total, hdr.Type, packetID)
		if raw == nil {
			return s.fail(KindSendBufferFull, hdr.Type.String())
		}
	}
	hn, err := hdr.Pack(raw)
	if err != nil || hn == 0 {
		return s.fail(KindMalformedRequest, hdr.Type.String())
	}
	if _, err := packBody(raw[hn:]); err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"type": hdr.Type, "packet_id": packetID}).Debug("mqtt: enqueued packet")
	return nil
}

// Sync performs one round of I/O: it flushes every queued byte to the
// transport, drains and dispatches whatever the transport has to offer,
// flushes the replies that dispatch queued (PUBACK, PUBREC, PUBREL,
// PUBCOMP), retransmits every sent message that has waited longer than
// ResponseTimeout for its ack (setting DUP on a PUBLISH), and queues a
// keep-alive PINGREQ, sent by the next Sync, once PingBackoffFraction *
// KeepAlive of outbound silence has elapsed. It is meant to be called
// periodically — see the refresher package.
func (s *Session) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky(); err != nil {
		return err
	}
	if err := s.sendLocked(); err != nil {
		return err
	}
	if err := s.receiveLocked(); err != nil {
		return err
	}
	if err := s.sticky(); err != nil {
		return err
	}
	if err := s.sendLocked(); err != nil {
		return err
	}
	s.retransmitLocked()
	return s.keepAliveLocked()
}

func (s *Session) sendLocked() error {
	pending := s.sq.Unsent()
	if len(pending) == 0 {
		return nil
	}
	n, err := s.Transport.SendAll(pending)
	if err != nil {
		return s.fail(KindSocketError, err.Error())
	}
	if n > 0 {
		now := time.Now()
		s.lastTxAt = now
		s.sq.MarkSent(n, now)
		s.sq.Compact()
		if s.Metrics != nil {
			s.Metrics.BytesSent.Add(float64(n))
		}
	}
	return nil
}

func (s *Session) receiveLocked() error {
	n, err := s.Transport.ReceiveAll(s.cfg.RecvBuffer)
	if err != nil {
		return s.fail(KindSocketError, err.Error())
	}
	if n == 0 {
		return nil
	}
	s.lastRxAt = time.Now()
	if s.Metrics != nil {
		s.Metrics.BytesReceived.Add(float64(n))
	}
	buf := s.cfg.RecvBuffer[:n]
	for len(buf) > 0 {
		resp, rn, err := unpackResponse(buf)
		if err != nil {
			return s.fail(KindMalformedResponse, err.Error())
		}
		if rn == 0 {
			break // partial packet; it will be completed by a later Sync call once RecvBuffer holds the rest
		}
		s.dispatchLocked(resp)
		buf = buf[rn:]
	}
	return nil
}

func (s *Session) dispatchLocked(resp Response) {
	if s.Metrics != nil {
		s.Metrics.PacketsReceived.Inc()
	}
	s.Log.WithFields(logrus.Fields{"type": resp.Header.Type}).Debug("mqtt: received packet")
	switch resp.Header.Type {
	case PacketConnack:
		if resp.Connack.ReturnCode == ReturnCodeConnAccepted {
			s.connected = true
			s.ackLocked(PacketConnack, 0)
		} else {
			s.fail(KindConnectionRefused, resp.Connack.ReturnCode.String())
		}
	case PacketPuback:
		s.ackLocked(PacketPuback, resp.PacketID)
	case PacketPubrec:
		// QoS2 second step: complete the original PUBLISH slot and enqueue
		// PUBREL re-keyed to the same packet id, unless a PUBREL for it is
		// already queued (a retransmitted PUBREC).
		s.ackLocked(PacketPubrec, resp.PacketID)
		if !s.sq.HasPending(PacketPubrel, resp.PacketID) {
			hdr := Header{Type: PacketPubrel, Flags: flagsPubrelSubUnsub, RemainingLength: 2}
			s.enqueue(hdr, resp.PacketID, func(body []byte) (int, error) {
				return packPacketIdentifier(body, resp.PacketID)
			})
		}
	case PacketPubcomp:
		s.ackLocked(PacketPubcomp, resp.PacketID)
	case PacketPubrel:
		// The broker completing the QoS2 handshake for a PUBLISH it sent us
		// (we already replied with PUBREC): the PUBREC is acknowledged, and
		// PUBCOMP is the answer that finishes the exchange.
		for i := range s.sq.records {
			r := &s.sq.records[i]
			if r.controlType == PacketPubrec && r.packetID == resp.PacketID && r.state != stateComplete {
				if !r.sentAt.IsZero() {
					s.updateResponseTime(time.Since(r.sentAt))
				}
				s.sq.Complete(r)
				break
			}
		}
		hdr := Header{Type: PacketPubcomp, RemainingLength: 2}
		s.enqueue(hdr, resp.PacketID, func(body []byte) (int, error) {
			return packPacketIdentifier(body, resp.PacketID)
		})
	case PacketSuback:
		s.ackLocked(PacketSuback, resp.Suback.PacketIdentifier)
	case PacketUnsuback:
		s.ackLocked(PacketUnsuback, resp.Unsuback)
	case PacketPingresp:
		s.pingOutstanding = false
		s.ackLocked(PacketPingresp, 0)
	case PacketPublish:
		s.handleIncomingPublishLocked(resp)
	}
}

// ackLocked completes the queued record acknowledged by an incoming
// packet of type ackType carrying packetID, and updates the smoothed
// typical response time from how long the original send waited.
func (s *Session) ackLocked(ackType PacketType, packetID uint16) {
	r := s.sq.Find(ackType, packetID)
	if r == nil {
		s.Log.WithFields(logrus.Fields{"type": ackType, "packet_id": packetID}).Warn("mqtt: ack of unknown packet")
		return
	}
	if !r.sentAt.IsZero() {
		elapsed := time.Since(r.sentAt)
		s.updateResponseTime(elapsed)
	}
	s.sq.Complete(r)
	s.sq.Compact()
}

// updateResponseTime folds sample into the running typical response time
// using an exponentially weighted moving average (7/8 old, 1/8 new).
func (s *Session) updateResponseTime(sample time.Duration) {
	if s.typicalResponseTime == 0 {
		s.typicalResponseTime = sample
	} else {
		s.typicalResponseTime = time.Duration(0.875*float64(s.typicalResponseTime) + 0.125*float64(sample))
	}
	if s.Metrics != nil {
		s.Metrics.TypicalRespTimeMs.Set(float64(s.typicalResponseTime.Milliseconds()))
	}
}

// handleIncomingPublishLocked runs the receiver side of the QoS1/QoS2
// handshake for a PUBLISH the broker forwarded to this client: a PUBACK
// for QoS1, or a PUBREC for QoS2. The broker's follow-up PUBREL (QoS2
// only) is handled like any other incoming packet, via the
// PacketPubrel case of dispatchLocked, which replies with PUBCOMP.
func (s *Session) handleIncomingPublishLocked(resp Response) {
	qos := resp.Header.Flags.QoS()
	switch qos {
	case QoS1:
		hdr := Header{Type: PacketPuback, RemainingLength: 2}
		s.enqueue(hdr, resp.Publish.PacketIdentifier, func(body []byte) (int, error) {
			return packPacketIdentifier(body, resp.Publish.PacketIdentifier)
		})
	case QoS2:
		hdr := Header{Type: PacketPubrec, RemainingLength: 2}
		s.enqueue(hdr, resp.Publish.PacketIdentifier, func(body []byte) (int, error) {
			return packPacketIdentifier(body, resp.Publish.PacketIdentifier)
		})
	}
	if s.OnPublish != nil {
		s.OnPublish(resp.Publish.TopicName, resp.Publish.Payload, qos, resp.Header.Flags.Retain())
	}
}

// retransmitLocked resends every queued message that has been awaiting an
// acknowledgement for longer than ResponseTimeout — not just PUBLISH, but
// any of CONNECT/PUBLISH/PUBREC/PUBREL/SUBSCRIBE/UNSUBSCRIBE/PINGREQ. A
// PUBLISH retransmission additionally sets the DUP bit; every other
// control type is resent unchanged. Because a retransmit falls outside
// the normal once-only send cursor (the packet's bytes may already be
// behind it, possibly already compacted away if fully acked — which the
// stateComplete check rules out), it is written to the transport directly
// rather than folded back into Sync's regular send.
func (s *Session) retransmitLocked() {
	now := time.Now()
	for i := range s.sq.records {
		r := &s.sq.records[i]
		if r.state == stateComplete {
			continue
		}
		if r.sentAt.IsZero() || now.Sub(r.sentAt) < s.cfg.ResponseTimeout {
			continue
		}
		raw := s.sq.Bytes(r)
		if r.controlType == PacketPublish {
			setPublishDup(raw)
		}
		if _, err := s.Transport.SendAll(raw); err != nil {
			s.fail(KindSocketError, err.Error())
			return
		}
		r.sentAt = now
		s.lastTxAt = now
		s.numberOfTimeouts++
		if s.Metrics != nil {
			s.Metrics.Retransmissions.Inc()
		}
		s.Log.WithFields(logrus.Fields{"type": r.controlType, "packet_id": r.packetID}).Warn("mqtt: retransmitting unacked packet")
	}
}

// setPublishDup flips on the DUP bit of a serialized PUBLISH packet's
// fixed header in place.
func setPublishDup(raw []byte) {
	if len(raw) == 0 {
		return
	}
	raw[0] |= byte(flagDup)
}

// keepAliveLocked sends a PINGREQ once PingBackoffFraction * KeepAlive of
// outbound silence has elapsed (0.75 * KeepAlive by default).
func (s *Session) keepAliveLocked() error {
	if s.cfg.KeepAlive == 0 || s.pingOutstanding {
		return nil
	}
	threshold := time.Duration(float64(s.cfg.KeepAlive) * s.cfg.PingBackoffFraction)
	if s.lastTxAt.IsZero() || time.Since(s.lastTxAt) < threshold {
		return nil
	}
	return s.pingLocked()
}
