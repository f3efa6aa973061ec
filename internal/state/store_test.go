package state

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type fakeFallthrough struct {
	slot    common.Hash
	code    []byte
	nonce   uint64
	balance *uint256.Int
}

func (f *fakeFallthrough) ReadSlot(context.Context, common.Address, common.Hash) (common.Hash, error) {
	return f.slot, nil
}
func (f *fakeFallthrough) ReadCodeAt(context.Context, common.Address) ([]byte, error) {
	return f.code, nil
}
func (f *fakeFallthrough) ReadNonce(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}
func (f *fakeFallthrough) ReadBalance(context.Context, common.Address) (*uint256.Int, error) {
	return f.balance.Clone(), nil
}

func TestReadSlotFallsThroughThenZero(t *testing.T) {
	s := New(nil)
	v, err := s.ReadSlot(context.Background(), common.Address{1}, common.Hash{2})
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, v)

	ft := &fakeFallthrough{slot: common.Hash{9}, balance: uint256.NewInt(0)}
	s2 := New(ft)
	v2, err := s2.ReadSlot(context.Background(), common.Address{1}, common.Hash{2})
	require.NoError(t, err)
	require.Equal(t, common.Hash{9}, v2)

	s2.WriteSlot(common.Address{1}, common.Hash{2}, common.Hash{5})
	v3, err := s2.ReadSlot(context.Background(), common.Address{1}, common.Hash{2})
	require.NoError(t, err)
	require.Equal(t, common.Hash{5}, v3)
}

func TestStoreBytecodeRejectsUnalignedLength(t *testing.T) {
	s := New(nil)
	err := s.StoreBytecode(common.Hash{1}, make([]byte, 31))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid bytecode")

	require.NoError(t, s.StoreBytecode(common.Hash{1}, make([]byte, 64)))
}

func TestSetNonceAcceptsArbitraryValues(t *testing.T) {
	s := New(nil)
	s.SetNonce(common.Address{1}, 10)
	n, _ := s.ReadNonce(context.Background(), common.Address{1})
	require.EqualValues(t, 10, n)

	// Rolling back to zero must be accepted (hardhat_reset behavior).
	s.SetNonce(common.Address{1}, 0)
	n, _ = s.ReadNonce(context.Background(), common.Address{1})
	require.EqualValues(t, 0, n)
}

func TestBalanceAddSubAndClone(t *testing.T) {
	s := New(nil)
	s.SetBalance(common.Address{1}, uint256.NewInt(100))

	require.NoError(t, s.AddBalance(context.Background(), common.Address{1}, uint256.NewInt(50)))
	b, _ := s.ReadBalance(context.Background(), common.Address{1})
	require.Equal(t, uint256.NewInt(150), b)

	clone := s.Clone()
	require.NoError(t, s.SubBalance(context.Background(), common.Address{1}, uint256.NewInt(150)))
	b, _ = s.ReadBalance(context.Background(), common.Address{1})
	require.True(t, b.IsZero())

	// the clone must be unaffected by the mutation above
	cb, _ := clone.ReadBalance(context.Background(), common.Address{1})
	require.Equal(t, uint256.NewInt(150), cb)
}

func TestCloneIsIndependentOfOriginalBalancePointer(t *testing.T) {
	s := New(nil)
	s.SetBalance(common.Address{1}, uint256.NewInt(10))
	clone := s.Clone()
	s.SetBalance(common.Address{1}, uint256.NewInt(999))

	cb, _ := clone.ReadBalance(context.Background(), common.Address{1})
	require.Equal(t, uint256.NewInt(10), cb)
}

func TestRestoreReplacesContentsInPlace(t *testing.T) {
	s := New(nil)
	s.SetBalance(common.Address{1}, uint256.NewInt(10))
	snapshot := s.Clone()

	s.SetBalance(common.Address{1}, uint256.NewInt(500))
	s.Restore(snapshot)

	b, _ := s.ReadBalance(context.Background(), common.Address{1})
	require.Equal(t, uint256.NewInt(10), b)
}
