package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderPackUnpackRoundTrip(t *testing.T) {
	cases := []Header{
		{Type: PacketConnect, Flags: 0, RemainingLength: 12},
		{Type: PacketPublish, Flags: NewPublishFlags(true, QoS2, true), RemainingLength: 300},
		{Type: PacketPingreq, Flags: 0, RemainingLength: 0},
		{Type: PacketSubscribe, Flags: flagsPubrelSubUnsub, RemainingLength: 128},
	}
	for _, h := range cases {
		var buf [8]byte
		n, err := h.Pack(buf[:])
		require.NoError(t, err)
		require.NotZero(t, n)

		got, gn, err := UnpackHeader(buf[:n])
		require.NoError(t, err)
		require.Equal(t, n, gn)
		require.Equal(t, h, got)
	}
}

func TestHeaderPackTooSmallBuffer(t *testing.T) {
	h := Header{Type: PacketPublish, RemainingLength: 200}
	var tiny [1]byte
	n, err := h.Pack(tiny[:])
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestHeaderPackRejectsForbiddenType(t *testing.T) {
	h := Header{Type: 0, RemainingLength: 0}
	var buf [8]byte
	_, err := h.Pack(buf[:])
	require.ErrorIs(t, err, KindControlForbiddenType)
}

func TestHeaderPackRejectsInvalidFlags(t *testing.T) {
	h := Header{Type: PacketSubscribe, Flags: 0, RemainingLength: 0}
	var buf [8]byte
	_, err := h.Pack(buf[:])
	require.ErrorIs(t, err, KindControlInvalidFlags)
}

func TestUnpackHeaderIncompleteBuffer(t *testing.T) {
	h := Header{Type: PacketConnect, RemainingLength: 300}
	var buf [8]byte
	n, _ := h.Pack(buf[:])

	got, gn, err := UnpackHeader(buf[:n-1])
	require.NoError(t, err)
	require.Zero(t, gn)
	require.Equal(t, Header{}, got)
}

func TestHeaderSizeMatchesPackedLength(t *testing.T) {
	h := Header{Type: PacketPublish, RemainingLength: 16384}
	var buf [8]byte
	n, err := h.Pack(buf[:])
	require.NoError(t, err)
	require.Equal(t, h.Size(), n)
}
