package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackPacketIdentifierRoundTrip(t *testing.T) {
	var buf [2]byte
	n, err := packPacketIdentifier(buf[:], 0xBEEF)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	pi, gn, err := unpackPacketIdentifier(buf[:])
	require.NoError(t, err)
	require.Equal(t, 2, gn)
	require.Equal(t, uint16(0xBEEF), pi)
}

func TestPackPacketIdentifierRejectsZero(t *testing.T) {
	var buf [2]byte
	_, err := packPacketIdentifier(buf[:], 0)
	require.ErrorIs(t, err, KindMalformedRequest)
}

func TestUnpackPacketIdentifierRejectsZero(t *testing.T) {
	buf := []byte{0x00, 0x00}
	_, _, err := unpackPacketIdentifier(buf)
	require.ErrorIs(t, err, KindMalformedResponse)
}

func TestConnackRoundTrip(t *testing.T) {
	v := VariablesConnack{SessionPresent: true, ReturnCode: ReturnCodeConnAccepted}
	var buf [2]byte
	n, err := packConnack(buf[:], v)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, gn, err := unpackConnack(buf[:])
	require.NoError(t, err)
	require.Equal(t, 2, gn)
	require.Equal(t, v, got)
}

func TestConnackRejectsForbiddenReturnCode(t *testing.T) {
	v := VariablesConnack{ReturnCode: minInvalidReturnCode}
	var buf [2]byte
	_, err := packConnack(buf[:], v)
	require.ErrorIs(t, err, KindConnackForbiddenCode)
}
