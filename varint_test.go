package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemainingLengthRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, maxRemainingLengthValue}
	for _, v := range values {
		var buf [4]byte
		n := packRemainingLength(buf[:], v)
		require.NotZero(t, n, "value %d", v)
		require.Equal(t, remainingLengthSize(v), n)

		got, gn, err := unpackRemainingLength(buf[:n])
		require.NoError(t, err)
		require.Equal(t, n, gn)
		require.Equal(t, v, got)
	}
}

func TestRemainingLengthOverflow(t *testing.T) {
	var buf [4]byte
	n := packRemainingLength(buf[:], maxRemainingLengthValue+1)
	require.Zero(t, n)
}

func TestUnpackRemainingLengthTooManyContinuationBytes(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	_, n, err := unpackRemainingLength(buf)
	require.Zero(t, n)
	require.ErrorIs(t, err, KindMalformedResponse)
}

func TestUnpackRemainingLengthIncomplete(t *testing.T) {
	buf := []byte{0x80}
	v, n, err := unpackRemainingLength(buf)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, v)
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"", "a", "hello/world", "topic/with/many/segments"}
	for _, s := range cases {
		buf := make([]byte, 2+len(s))
		n := packString(buf, s)
		require.Equal(t, len(buf), n)

		got, gn := unpackString(buf)
		require.Equal(t, s, got)
		require.Equal(t, len(buf), gn)
	}
}

func TestPackStringTooSmall(t *testing.T) {
	buf := make([]byte, 1)
	n := packString(buf, "hi")
	require.Zero(t, n)
}

func TestUint16RoundTrip(t *testing.T) {
	var buf [2]byte
	putUint16(buf[:], 0xBEEF)
	require.Equal(t, uint16(0xBEEF), getUint16(buf[:]))
}
