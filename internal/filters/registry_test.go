package filters

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestLogFilterPollDisjointAndUnionsToFullSet(t *testing.T) {
	r := New()
	addr := common.Address{1}
	id := r.NewLogFilter(Criteria{FromBlock: big.NewInt(0), ToBlock: big.NewInt(100), Addresses: []common.Address{addr}})

	log1 := &types.Log{Address: addr, BlockNumber: 1}
	log2 := &types.Log{Address: addr, BlockNumber: 2}
	log3 := &types.Log{Address: common.Address{2}, BlockNumber: 3} // non-matching address

	r.NotifyLog(log1)
	changes1, err := r.GetFilterChanges(id)
	require.NoError(t, err)
	require.Equal(t, []*types.Log{log1}, changes1)

	r.NotifyLog(log2)
	r.NotifyLog(log3)
	changes2, err := r.GetFilterChanges(id)
	require.NoError(t, err)
	require.Equal(t, []*types.Log{log2}, changes2)

	full, err := r.GetFilterLogs(id)
	require.NoError(t, err)
	require.Equal(t, []*types.Log{log1, log2}, full)
}

func TestTopicWildcardAndAlternatives(t *testing.T) {
	t1 := common.Hash{1}
	t2 := common.Hash{2}
	other := common.Hash{9}

	c := Criteria{Topics: [][]common.Hash{{}, {t1, t2}}}
	require.True(t, Matches(c, &types.Log{Topics: []common.Hash{other, t1}}))
	require.True(t, Matches(c, &types.Log{Topics: []common.Hash{other, t2}}))
	require.False(t, Matches(c, &types.Log{Topics: []common.Hash{other, other}}))
	require.False(t, Matches(c, &types.Log{Topics: []common.Hash{other}})) // missing position 1
}

func TestUninstallMakesFilterUnreachable(t *testing.T) {
	r := New()
	id := r.NewBlockFilter()
	require.True(t, r.Uninstall(id))
	_, err := r.GetFilterChanges(id)
	require.Error(t, err)
	require.False(t, r.Uninstall(id))
}

func TestSnapshotRestoreRoundTrips(t *testing.T) {
	r := New()
	addr := common.Address{1}
	id := r.NewLogFilter(Criteria{Addresses: []common.Address{addr}})
	r.NotifyLog(&types.Log{Address: addr})
	snap := r.Snapshot()

	r.NotifyLog(&types.Log{Address: addr})
	id2 := r.NewBlockFilter()

	r.Restore(snap)
	_, err := r.GetFilterChanges(id2)
	require.Error(t, err, "filters created after the snapshot must not survive restore")

	logs, err := r.GetFilterLogs(id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}
