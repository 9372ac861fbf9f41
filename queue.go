package mqtt

import "time"

// messageState tracks a queued outbound message through its acknowledgement
// lifecycle. Unsent vs. awaiting-ack is distinguished by
// queuedMessage.sentAt (zero means still unsent) rather than a third
// messageState value, since MarkSent/retransmitLocked only ever need to
// ask "has this been handed to the transport yet" alongside "is it done".
type messageState uint8

const (
	stateUnacked  messageState = iota // unsent, or sent and awaiting an ack
	stateComplete                     // acknowledged; eligible for Compact
)

// queuedMessage is the fixed-size metadata record the send queue keeps for
// every message currently sitting in its byte arena.
type queuedMessage struct {
	start       int // offset of the serialized packet within the arena
	size        int
	state       messageState
	sentAt      time.Time
	controlType PacketType
	packetID    uint16
}

// sendQueue is a single caller-supplied byte buffer used as an arena: the
// serialized packets it holds grow forward from offset 0 via curr, and the
// queuedMessage metadata records describing them grow backward from the
// end of the buffer via tail. Compaction discards the leading run of
// stateComplete records (and their packet bytes) in place, so the arena
// never needs to grow no matter how long the session runs.
//
// The caller owns the buffer entirely: nothing in this package ever
// allocates it or grows it past its original length.
type sendQueue struct {
	buf  []byte
	curr int // end of packet bytes written so far, grows forward
	tail int // start of the metadata records region, grows backward
	sent int // end of the prefix already handed to the transport

	records []queuedMessage // records[0] is oldest; kept in send order
}

func newSendQueue(buf []byte) sendQueue {
	return sendQueue{buf: buf, curr: 0, tail: len(buf)}
}

// Unsent returns the slice of serialized packet bytes not yet handed to
// the transport.
func (q *sendQueue) Unsent() []byte {
	return q.buf[q.sent:q.curr]
}

// MarkSent advances the sent cursor by n bytes, recording sentAt on every
// record whose bytes are now fully covered by it (used by Sync to time
// retransmission and smoothed response time). Control types that expect no
// response — PUBACK, PUBCOMP, DISCONNECT, and a QoS0 PUBLISH — transition
// straight to stateComplete here instead of waiting on an ack that will
// never arrive.
func (q *sendQueue) MarkSent(n int, at time.Time) {
	q.sent += n
	for i := range q.records {
		r := &q.records[i]
		if r.sentAt.IsZero() && r.start+r.size <= q.sent {
			r.sentAt = at
			if noAckExpected(r.controlType, r.packetID) {
				r.state = stateComplete
			}
		}
	}
}

// noAckExpected reports whether a record of this controlType (and, for
// PUBLISH, this packetID) is complete as soon as it reaches the transport.
// A PUBLISH only ever carries packetID 0 at QoS0, since QoS1/QoS2 always
// allocate a non-zero packet id before enqueueing.
func noAckExpected(controlType PacketType, packetID uint16) bool {
	switch controlType {
	case PacketPuback, PacketPubcomp, PacketDisconnect:
		return true
	case PacketPublish:
		return packetID == 0
	default:
		return false
	}
}

// available returns how many free bytes remain between the packet region
// and the metadata region.
func (q *sendQueue) available() int {
	return q.tail - q.curr - recordSize
}

// recordSize is a conservative stand-in for the space a queuedMessage
// would take if it were marshaled into the tail region of buf. This
// implementation keeps the records slice in normal Go memory (simpler and
// just as alloc-stable once grown) and only reserves recordSize bytes per
// record so available() degrades the same way an in-buffer arena would as
// more messages queue up.
const recordSize = 24

// Register reserves n bytes at the front of the arena for a new outbound
// packet and appends its metadata record. Callers write the serialized
// packet into the returned slice themselves. It returns nil if the arena
// does not have n bytes plus one record's worth of room; the caller must
// then Compact and retry, or report KindSendBufferFull.
func (q *sendQueue) Register(n int, controlType PacketType, packetID uint16) []byte {
	if q.available() < n {
		return nil
	}
	start := q.curr
	q.curr += n
	q.tail -= recordSize
	q.records = append(q.records, queuedMessage{
		start:       start,
		size:        n,
		state:       stateUnacked,
		sentAt:      time.Time{},
		controlType: controlType,
		packetID:    packetID,
	})
	return q.buf[start : start+n]
}

// Find returns a pointer to the oldest queued record that an incoming ack
// of type controlType carrying packetID acknowledges, or nil if there is
// none. PUBACK/PUBREC/PUBCOMP/SUBACK/UNSUBACK lookups key on packetID;
// CONNACK and PINGRESP are looked up with packetID 0, matching the CONNECT
// and PINGREQ records, which carry no packet id. An incoming PUBREL
// matches nothing here.
func (q *sendQueue) Find(controlType PacketType, packetID uint16) *queuedMessage {
	for i := range q.records {
		r := &q.records[i]
		if r.packetID == packetID && matchesAck(r.controlType, controlType) {
			return r
		}
	}
	return nil
}

// matchesAck reports whether an incoming ack of kind ack acknowledges a
// queued message originally sent as sent.
func matchesAck(sent, ack PacketType) bool {
	switch sent {
	case PacketConnect:
		return ack == PacketConnack
	case PacketPublish:
		return ack == PacketPuback || ack == PacketPubrec
	case PacketPubrel:
		return ack == PacketPubcomp
	case PacketSubscribe:
		return ack == PacketSuback
	case PacketUnsubscribe:
		return ack == PacketUnsuback
	case PacketPingreq:
		return ack == PacketPingresp
	default:
		return false
	}
}

// HasPending reports whether a not-yet-complete record of this exact
// controlType and packetID is already queued. Used to drop a duplicate
// PUBREL enqueue when a retransmitted PUBREC arrives for a packet id that
// already has one outstanding.
func (q *sendQueue) HasPending(controlType PacketType, packetID uint16) bool {
	for i := range q.records {
		r := &q.records[i]
		if r.controlType == controlType && r.packetID == packetID && r.state != stateComplete {
			return true
		}
	}
	return false
}

// Complete marks r as fully acknowledged. Completed records are only
// reclaimed by Compact, and only once they form a prefix of the queue:
// Compact can only memmove away a contiguous complete run starting at the
// oldest message.
func (q *sendQueue) Complete(r *queuedMessage) {
	r.state = stateComplete
}

// Bytes returns the serialized packet bytes for r.
func (q *sendQueue) Bytes(r *queuedMessage) []byte {
	return q.buf[r.start : r.start+r.size]
}

// Pending returns the queue's records in send order, oldest first. Callers
// must not retain the returned slice across a Compact call.
func (q *sendQueue) Pending() []queuedMessage {
	return q.records
}

// Compact drops every stateComplete record from the front of the queue,
// memmove-ing both the packet bytes and the remaining metadata records
// down to reclaim their space. It stops at the first record that is not
// complete: a completed message in the middle of the queue cannot be
// reclaimed until everything older than it has also completed.
func (q *sendQueue) Compact() {
	i := 0
	for i < len(q.records) && q.records[i].state == stateComplete {
		i++
	}
	if i == 0 {
		return
	}
	freed := q.records[i-1].start + q.records[i-1].size
	remaining := q.records[i:]
	if len(remaining) == 0 {
		q.curr = 0
		q.sent = 0
		q.records = q.records[:0]
		q.tail = len(q.buf)
		return
	}
	n := copy(q.buf, q.buf[freed:q.curr])
	q.curr = n
	q.sent -= freed
	if q.sent < 0 {
		q.sent = 0
	}
	kept := copy(q.records, remaining)
	q.records = q.records[:kept]
	for j := range q.records {
		q.records[j].start -= freed
	}
	q.tail = len(q.buf) - len(q.records)*recordSize
}

// Reset discards every queued message and returns the arena to empty. Used
// by the reconnect package once a session's transport has been replaced,
// since any previously-queued AWAITING_ACK records can no longer be
// trusted to match what the broker still expects (see DESIGN.md).
func (q *sendQueue) Reset() {
	q.curr = 0
	q.sent = 0
	q.tail = len(q.buf)
	q.records = q.records[:0]
}
