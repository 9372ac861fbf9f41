package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendQueueRegisterAndBytes(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	raw := q.Register(4, PacketPublish, 1)
	require.NotNil(t, raw)
	copy(raw, []byte{0x30, 0x02, 0xAB, 0xCD})

	recs := q.Pending()
	require.Len(t, recs, 1)
	require.Equal(t, []byte{0x30, 0x02, 0xAB, 0xCD}, q.Bytes(&recs[0]))
}

func TestSendQueueFindMatchesAckingType(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketPublish, 7)
	q.Register(4, PacketSubscribe, 9)

	r := q.Find(PacketPuback, 7)
	require.NotNil(t, r)
	require.Equal(t, PacketPublish, r.controlType)

	r = q.Find(PacketPubrec, 7)
	require.NotNil(t, r)

	require.Nil(t, q.Find(PacketPuback, 9))
	require.NotNil(t, q.Find(PacketSuback, 9))
}

func TestSendQueueFindMatchesConnackAndPingresp(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketConnect, 0)
	q.Register(4, PacketPingreq, 0)

	r := q.Find(PacketConnack, 0)
	require.NotNil(t, r)
	require.Equal(t, PacketConnect, r.controlType)

	r = q.Find(PacketPingresp, 0)
	require.NotNil(t, r)
	require.Equal(t, PacketPingreq, r.controlType)
}

func TestSendQueueHasPendingIgnoresCompletedRecords(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketPubrel, 5)
	require.True(t, q.HasPending(PacketPubrel, 5))
	require.False(t, q.HasPending(PacketPubrel, 6))

	q.Complete(&q.records[0])
	require.False(t, q.HasPending(PacketPubrel, 5))
}

func TestSendQueueCompactOnlyReclaimsLeadingCompleteRun(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketPublish, 1)
	q.Register(4, PacketPublish, 2)
	q.Register(4, PacketPublish, 3)

	recs := q.Pending()
	q.Complete(&recs[0])
	q.Complete(&recs[2]) // completed out of order; must not be reclaimed yet

	q.Compact()
	require.Len(t, q.Pending(), 2)
	require.Equal(t, uint16(2), q.Pending()[0].packetID)
	require.Equal(t, uint16(3), q.Pending()[1].packetID)

	// Completing packet 2 makes the whole queue a complete run, including
	// packet 3, which was completed earlier.
	q.Complete(&q.records[0])
	q.Compact()
	require.Len(t, q.Pending(), 0)
	require.Equal(t, 0, q.curr)
}

func TestSendQueueCompactEmptiesArenaWhenAllComplete(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketPublish, 1)
	q.Register(4, PacketPublish, 2)
	for i := range q.records {
		q.Complete(&q.records[i])
	}
	q.Compact()
	require.Empty(t, q.Pending())
	require.Equal(t, 0, q.curr)
	require.Equal(t, 0, q.sent)
}

func TestSendQueueRegisterFailsWhenArenaFull(t *testing.T) {
	q := newSendQueue(make([]byte, recordSize+4))
	raw := q.Register(4, PacketPublish, 1)
	require.NotNil(t, raw)

	raw2 := q.Register(4, PacketPublish, 2)
	require.Nil(t, raw2)
}

func TestSendQueueMarkSentSetsSentAt(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketPublish, 1)
	require.True(t, q.records[0].sentAt.IsZero())

	now := time.Now()
	q.MarkSent(4, now)
	require.False(t, q.records[0].sentAt.IsZero())
	require.Equal(t, now, q.records[0].sentAt)
	require.Equal(t, stateUnacked, q.records[0].state)
}

func TestSendQueueMarkSentCompletesRecordsThatExpectNoAck(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketPuback, 0)
	q.Register(4, PacketPubcomp, 0)
	q.Register(4, PacketDisconnect, 0)
	q.Register(4, PacketPublish, 0) // QoS0 publish: packetID always 0

	q.MarkSent(16, time.Now())
	for _, r := range q.Pending() {
		require.Equal(t, stateComplete, r.state, "controlType %v should complete on send", r.controlType)
	}
}

func TestSendQueueReset(t *testing.T) {
	q := newSendQueue(make([]byte, 256))
	q.Register(4, PacketPublish, 1)
	q.Reset()
	require.Empty(t, q.Pending())
	require.Equal(t, 0, q.curr)
	require.Equal(t, 0, q.sent)
}
