package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModeNoneAlwaysMisses(t *testing.T) {
	c, err := New(ModeNone, "")
	require.NoError(t, err)
	require.NoError(t, c.Set(Fingerprint{Method: "eth_getBlockByNumber"}, []byte("x")))
	_, ok := c.Get(Fingerprint{Method: "eth_getBlockByNumber"})
	require.False(t, ok)
}

func TestModeMemoryHit(t *testing.T) {
	c, err := New(ModeMemory, "")
	require.NoError(t, err)
	fp := Fingerprint{EndpointID: "e1", PinnedBatch: 10, Method: "eth_getStorageAt", Params: []any{"0xabc", "0x1"}}
	require.NoError(t, c.Set(fp, []byte("0x2a")))

	v, ok := c.Get(fp)
	require.True(t, ok)
	require.Equal(t, "0x2a", string(v))

	_, ok = c.Get(Fingerprint{EndpointID: "e1", PinnedBatch: 10, Method: "eth_getStorageAt", Params: []any{"0xabc", "0x2"}})
	require.False(t, ok)
}

func TestModeDiskSurvivesRestartUntilReset(t *testing.T) {
	dir := t.TempDir()
	c, err := New(ModeDisk, dir)
	require.NoError(t, err)

	fp := Fingerprint{EndpointID: "e1", Method: "eth_getBytecode", Params: "0xdead"}
	require.NoError(t, c.Set(fp, []byte("0xbeef")))

	// A fresh Cache pointed at the same directory must see the disk
	// entry even though its memory tier starts empty.
	c2, err := New(ModeDisk, dir)
	require.NoError(t, err)
	v, ok := c2.Get(fp)
	require.True(t, ok)
	require.Equal(t, "0xbeef", string(v))

	require.NoError(t, c2.Reset("e1"))
	_, ok = c2.Get(fp)
	require.False(t, ok)
}

func TestDiskPathIsStableAndNamespaced(t *testing.T) {
	c, err := New(ModeDisk, t.TempDir())
	require.NoError(t, err)
	fp := Fingerprint{EndpointID: "e1", Method: "m", Params: 1}
	p1 := c.diskPath(fp)
	p2 := c.diskPath(fp)
	require.Equal(t, p1, p2)
	require.Equal(t, filepath.Ext(p1), ".json")
}
