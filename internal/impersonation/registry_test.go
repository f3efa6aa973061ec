package impersonation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSingleModeOnlyOneAtATime(t *testing.T) {
	r := New()
	a1 := common.Address{1}
	a2 := common.Address{2}

	r.Impersonate(a1)
	require.True(t, r.IsImpersonated(a1))

	r.Impersonate(a2)
	require.False(t, r.IsImpersonated(a1))
	require.True(t, r.IsImpersonated(a2))

	r.StopImpersonating()
	require.False(t, r.IsImpersonated(a2))
}

func TestAutoModeBypassesEverySender(t *testing.T) {
	r := New()
	r.SetAutoImpersonate(true)
	require.True(t, r.IsImpersonated(common.Address{0xff}))
	r.SetAutoImpersonate(false)
	require.False(t, r.IsImpersonated(common.Address{0xff}))
}

func TestSnapshotRestore(t *testing.T) {
	r := New()
	r.Impersonate(common.Address{1})
	snap := r.Snapshot()

	r.StopImpersonating()
	r.SetAutoImpersonate(true)

	r.Restore(snap)
	require.True(t, r.IsImpersonated(common.Address{1}))
	require.False(t, r.IsImpersonated(common.Address{2}))
}
