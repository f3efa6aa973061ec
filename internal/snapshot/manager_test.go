package snapshot

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/zksync-go/innode/internal/chain"
	"github.com/zksync-go/innode/internal/filters"
	"github.com/zksync-go/innode/internal/impersonation"
	"github.com/zksync-go/innode/internal/state"
	"github.com/zksync-go/innode/internal/timeoracle"
)

func newTestManager() (*Manager, *state.Store, *chain.Store) {
	st := state.New(nil)
	ch := chain.New(0, common.Hash{}, 1000, 0)
	clk := timeoracle.New(1000)
	flt := filters.New()
	imp := impersonation.New()
	return New(st, ch, clk, flt, imp), st, ch
}

func TestSnapshotIDsStrictlyIncrease(t *testing.T) {
	m, _, _ := newTestManager()
	s1 := m.Snapshot()
	s2 := m.Snapshot()
	require.Less(t, s1, s2)
}

func TestRevertRestoresBalanceAndInvalidatesLaterIDs(t *testing.T) {
	m, st, _ := newTestManager()
	addr := common.Address{1}
	st.SetBalance(addr, uint256.NewInt(100))

	s1 := m.Snapshot()
	st.SetBalance(addr, uint256.NewInt(999))
	s2 := m.Snapshot()
	st.SetBalance(addr, uint256.NewInt(1))

	require.NoError(t, m.Revert(s1))

	b, _ := st.ReadBalance(context.Background(), addr)
	require.Equal(t, uint256.NewInt(100), b)

	err := m.Revert(s2)
	require.Error(t, err)
}

func TestRevertUnknownIDFails(t *testing.T) {
	m, _, _ := newTestManager()
	err := m.Revert(999)
	require.Error(t, err)
}

func TestRevertTruncatesChainHead(t *testing.T) {
	m, _, ch := newTestManager()
	s1 := m.Snapshot()

	_, err := ch.AppendEmptyBlocks(5, 30_000_000, nil, func() uint64 { return 1001 })
	require.NoError(t, err)
	require.EqualValues(t, 5, ch.HeadNumber())

	require.NoError(t, m.Revert(s1))
	require.EqualValues(t, 0, ch.HeadNumber())
}

func TestSnapshotIDsKeepIncreasingAcrossReverts(t *testing.T) {
	m, _, _ := newTestManager()
	s1 := m.Snapshot()
	s2 := m.Snapshot()
	require.NoError(t, m.Revert(s1))
	s3 := m.Snapshot()
	require.Greater(t, s3, s2)
}
