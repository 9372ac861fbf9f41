package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLFSRNeverProducesZero(t *testing.T) {
	l := newLFSR()
	seen := make(map[uint16]bool, 1000)
	for i := 0; i < 1000; i++ {
		v := l.next()
		require.NotZero(t, v, "iteration %d", i)
		seen[v] = true
	}
	// A correctly constructed LFSR of this width does not repeat within
	// such a short run.
	require.Len(t, seen, 1000)
}

func TestLFSRDeterministic(t *testing.T) {
	a := newLFSR()
	b := newLFSR()
	for i := 0; i < 50; i++ {
		require.Equal(t, a.next(), b.next())
	}
}
