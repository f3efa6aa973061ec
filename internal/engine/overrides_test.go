package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/zksync-go/innode/internal/state"
)

func writeOverride(t *testing.T, dir string, hash common.Hash, code []byte) {
	t.Helper()
	raw, err := json.Marshal(overrideFile{Bytecode: hexutil.Bytes(code)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, hash.Hex()+".json"), raw, 0o644))
}

func TestLoadOverridesEmptyDirName(t *testing.T) {
	ov, err := LoadOverrides("")
	require.NoError(t, err)
	require.Empty(t, ov)
}

func TestLoadOverridesReadsHashNamedFiles(t *testing.T) {
	dir := t.TempDir()
	code := make([]byte, 32)
	code[0] = 0xfe
	hash := crypto.Keccak256Hash([]byte("original"))
	writeOverride(t, dir, hash, code)
	// A stray non-override file in the same directory is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644))

	ov, err := LoadOverrides(dir)
	require.NoError(t, err)
	require.Len(t, ov, 1)
	require.Equal(t, code, ov[hash])
}

func TestLoadOverridesRejectsMisalignedBytecode(t *testing.T) {
	dir := t.TempDir()
	hash := crypto.Keccak256Hash([]byte("bad"))
	writeOverride(t, dir, hash, []byte{0x01, 0x02, 0x03})

	_, err := LoadOverrides(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple of 32")
}

func TestOverrideReplacesDeployedBytecode(t *testing.T) {
	dir := t.TempDir()
	initCode := make([]byte, 32)
	copy(initCode, []byte{0x60, 0x00})
	replacement := make([]byte, 64)
	replacement[0] = 0xca
	writeOverride(t, dir, crypto.Keccak256Hash(initCode), replacement)

	eng := mustBuiltin(t, Options{Selection: SelectionBuiltIn, OverrideDir: dir})
	s := state.New(nil)
	sender := common.Address{1}
	s.SetBalance(sender, uint256.NewInt(1_000_000))

	tx := newLegacyTx(nil, 0, initCode, 100000)
	res, err := eng.Execute(context.Background(), BatchEnv{}, SystemEnv{}, tx, sender, nil, s)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Status)
	require.Equal(t, replacement, res.NewBytecodes[crypto.Keccak256Hash(replacement)])
}
