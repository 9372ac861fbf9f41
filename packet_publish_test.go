package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackPublishQoS0OmitsPacketIdentifier(t *testing.T) {
	v := VariablesPublish{TopicName: "sensors/temp", Payload: []byte("21.5")}
	buf := make([]byte, v.size(QoS0))
	n, err := packPublish(buf, v, QoS0)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	got, gn, err := unpackPublish(buf, uint32(n), QoS0)
	require.NoError(t, err)
	require.Equal(t, n, gn)
	require.Equal(t, v.TopicName, got.TopicName)
	require.Equal(t, v.Payload, got.Payload)
	require.Zero(t, got.PacketIdentifier)
}

func TestPackUnpackPublishQoS1CarriesPacketIdentifier(t *testing.T) {
	v := VariablesPublish{TopicName: "a/b", PacketIdentifier: 42, Payload: []byte("hi")}
	buf := make([]byte, v.size(QoS1))
	n, err := packPublish(buf, v, QoS1)
	require.NoError(t, err)

	got, gn, err := unpackPublish(buf, uint32(n), QoS1)
	require.NoError(t, err)
	require.Equal(t, n, gn)
	require.Equal(t, uint16(42), got.PacketIdentifier)
	require.Equal(t, v.Payload, got.Payload)
}

func TestPackPublishTooSmallBuffer(t *testing.T) {
	v := VariablesPublish{TopicName: "topic", Payload: []byte("payload")}
	n, err := packPublish(make([]byte, 2), v, QoS0)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPackPublishRejectsForbiddenQoS(t *testing.T) {
	v := VariablesPublish{TopicName: "t"}
	_, err := packPublish(make([]byte, 16), v, reservedQoS3)
	require.ErrorIs(t, err, KindPublishForbiddenQoS)
}

func TestSetPublishDupFlipsBit(t *testing.T) {
	v := VariablesPublish{TopicName: "t", PacketIdentifier: 1, Payload: []byte("x")}
	hdr := Header{Type: PacketPublish, Flags: NewPublishFlags(false, QoS1, false), RemainingLength: uint32(v.size(QoS1))}
	raw := make([]byte, hdr.Size()+int(hdr.RemainingLength))
	hn, err := hdr.Pack(raw)
	require.NoError(t, err)
	_, err = packPublish(raw[hn:], v, QoS1)
	require.NoError(t, err)

	require.False(t, PacketFlags(raw[0]&0x0f).Dup())
	setPublishDup(raw)
	require.True(t, PacketFlags(raw[0]&0x0f).Dup())
}
