package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func newTx(nonce uint64) *types.Transaction {
	return types.NewTx(&types.LegacyTx{Nonce: nonce, Gas: 21000, To: &common.Address{1}})
}

func TestAppendTransactionBlockLinksParentHash(t *testing.T) {
	s := New(100, common.Hash{0xaa}, 1_000, 50)

	tx1 := newTx(0)
	b1, batch1, err := s.AppendTransactionBlock(1_001, 30_000_000, 21_000, big.NewInt(250_000_000), tx1, &types.Receipt{Status: 1}, 1, "v24", nil)
	require.NoError(t, err)
	require.EqualValues(t, 101, b1.Number)
	require.Equal(t, common.Hash{0xaa}, b1.ParentHash)
	require.EqualValues(t, 51, batch1.Number)
	require.True(t, batch1.HasTransaction)

	tx2 := newTx(1)
	b2, _, err := s.AppendTransactionBlock(1_002, 30_000_000, 21_000, big.NewInt(250_000_000), tx2, &types.Receipt{Status: 1}, 1, "v24", nil)
	require.NoError(t, err)
	require.EqualValues(t, 102, b2.Number)
	require.Equal(t, b1.Hash, b2.ParentHash)
}

func TestAppendTransactionBlockRejectsNonIncreasingTimestamp(t *testing.T) {
	s := New(0, common.Hash{}, 1_000, 0)
	tx := newTx(0)
	_, _, err := s.AppendTransactionBlock(1_000, 30_000_000, 21_000, big.NewInt(0), tx, &types.Receipt{Status: 1}, 0, "", nil)
	require.Error(t, err)
}

func TestAppendEmptyBlocksIsBookkeepingOnly(t *testing.T) {
	s := New(0, common.Hash{}, 0, 0)
	ts := uint64(0)
	blocks, err := s.AppendEmptyBlocks(100, 30_000_000, big.NewInt(0), func() uint64 {
		ts += 60
		return ts
	})
	require.NoError(t, err)
	require.Len(t, blocks, 100)
	require.EqualValues(t, 100, s.HeadNumber())
	require.EqualValues(t, 6000, blocks[len(blocks)-1].Timestamp)

	batch, ok := s.BatchByNumber(100)
	require.True(t, ok)
	require.False(t, batch.HasTransaction)
}

func TestTruncateRewindsHeadAndIndices(t *testing.T) {
	s := New(0, common.Hash{}, 0, 0)
	tx1 := newTx(0)
	b1, _, err := s.AppendTransactionBlock(1, 30_000_000, 21_000, big.NewInt(0), tx1, &types.Receipt{Status: 1}, 0, "", nil)
	require.NoError(t, err)

	tx2 := newTx(1)
	_, _, err = s.AppendTransactionBlock(2, 30_000_000, 21_000, big.NewInt(0), tx2, &types.Receipt{Status: 1}, 0, "", nil)
	require.NoError(t, err)

	s.Truncate(b1.Number)
	require.EqualValues(t, b1.Number, s.HeadNumber())
	require.Equal(t, b1.Hash, s.HeadHash())

	_, ok := s.BlockByNumber(2)
	require.False(t, ok)
	_, ok = s.TransactionLocation(tx2.Hash())
	require.False(t, ok)

	_, ok = s.BlockByNumber(1)
	require.True(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(0, common.Hash{}, 0, 0)
	tx := newTx(0)
	_, _, err := s.AppendTransactionBlock(1, 30_000_000, 21_000, big.NewInt(0), tx, &types.Receipt{Status: 1}, 0, "", nil)
	require.NoError(t, err)

	clone := s.Clone()
	tx2 := newTx(1)
	_, _, err = s.AppendTransactionBlock(2, 30_000_000, 21_000, big.NewInt(0), tx2, &types.Receipt{Status: 1}, 0, "", nil)
	require.NoError(t, err)

	require.EqualValues(t, 1, clone.HeadNumber())
	require.EqualValues(t, 2, s.HeadNumber())
}

func TestTruncateToGenesisRestoresSeedHead(t *testing.T) {
	s := New(100, common.Hash{0xaa}, 1_000, 50)
	tx := newTx(0)
	_, _, err := s.AppendTransactionBlock(1_001, 30_000_000, 21_000, big.NewInt(0), tx, &types.Receipt{Status: 1}, 0, "", nil)
	require.NoError(t, err)

	s.Truncate(s.GenesisNumber())
	require.EqualValues(t, 100, s.HeadNumber())
	require.Equal(t, common.Hash{0xaa}, s.HeadHash())
	require.EqualValues(t, 50, s.HeadBatchNumber())

	// The next append links back to the seeded genesis exactly as if
	// nothing had ever been appended.
	b, _, err := s.AppendTransactionBlock(1_001, 30_000_000, 21_000, big.NewInt(0), newTx(1), &types.Receipt{Status: 1}, 0, "", nil)
	require.NoError(t, err)
	require.EqualValues(t, 101, b.Number)
	require.Equal(t, common.Hash{0xaa}, b.ParentHash)
}
