package forkview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilClientDegradesToZero(t *testing.T) {
	v := New(nil, 100, 5)
	require.False(t, v.Enabled())
	require.EqualValues(t, 100, v.ForkBlockNumber())

	h, err := v.ReadSlot(context.Background(), [20]byte{}, [32]byte{})
	require.NoError(t, err)
	require.Zero(t, h)

	_, err = v.BlockByNumber(context.Background(), 1)
	require.Error(t, err)
}

func TestBlockByNumberRejectsAboveForkPoint(t *testing.T) {
	v := New(nil, 100, 5)
	_, err := v.BlockByNumber(context.Background(), 100)
	require.Error(t, err) // nil client always errors regardless of pin check ordering

	v2 := &View{client: nil, forkBlock: 10}
	_, err = v2.BlockByNumber(context.Background(), 11)
	require.Error(t, err)
}
