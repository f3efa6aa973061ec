package timeoracle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClockAdvance(t *testing.T) {
	c := New(1_000)
	require.EqualValues(t, 1_000, c.Now())
	require.EqualValues(t, 1_001, c.Advance(1))
	require.EqualValues(t, 1_061, c.Advance(60))
}

func TestClockSetNextOverridesAdvance(t *testing.T) {
	c := New(1_000)
	c.SetNext(5_000)
	require.EqualValues(t, 5_000, c.Advance(1))
	// override is one-shot
	require.EqualValues(t, 5_001, c.Advance(1))
}

func TestClockSetMayMoveBackwards(t *testing.T) {
	c := New(10_000)
	c.Set(1)
	require.EqualValues(t, 1, c.Now())
}

func TestClockSnapshotRestore(t *testing.T) {
	c := New(1_000)
	c.SetNext(42)
	state := c.Snapshot()

	c.Advance(1) // consumes the override
	require.EqualValues(t, 42, c.Now())

	c.Restore(state)
	require.EqualValues(t, 1_000, c.Now())
	require.EqualValues(t, 42, c.Advance(1))
}
