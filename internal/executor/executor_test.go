package executor

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/zksync-go/innode/internal/chain"
	"github.com/zksync-go/innode/internal/engine"
	"github.com/zksync-go/innode/internal/filters"
	"github.com/zksync-go/innode/internal/impersonation"
	"github.com/zksync-go/innode/internal/state"
	"github.com/zksync-go/innode/internal/timeoracle"
	"github.com/zksync-go/innode/internal/zktx"
)

const testChainID = 260

func newTestExecutor(t *testing.T) (*Executor, *state.Store) {
	t.Helper()
	st := state.New(nil)
	ch := chain.New(0, common.Hash{}, 1000, 0)
	clk := timeoracle.New(1000)
	flt := filters.New()
	imp := impersonation.New()
	eng, err := engine.NewBuiltin(engine.Options{Selection: engine.SelectionBuiltIn})
	require.NoError(t, err)
	return New(st, ch, clk, flt, imp, eng, testChainID, 250_000_000, "v24"), st
}

func TestExecuteAppliesTransferAndCommitsBlock(t *testing.T) {
	ex, st := newTestExecutor(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	st.SetBalance(sender, uint256.NewInt(1_000_000_000_000))

	to := common.Address{0x42}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    0,
		To:       &to,
		Value:    big.NewInt(1000),
		Gas:      30000,
		GasPrice: big.NewInt(1),
	})
	signer := types.NewLondonSigner(big.NewInt(testChainID))
	signedTx, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)
	raw, err := signedTx.MarshalBinary()
	require.NoError(t, err)

	receipt, err := ex.Execute(context.Background(), raw)
	require.NoError(t, err)
	require.EqualValues(t, 1, receipt.Status)
	require.EqualValues(t, 1, ex.Chain.HeadNumber())

	toBalance, _ := st.ReadBalance(context.Background(), to)
	require.Equal(t, uint256.NewInt(1000), toBalance)

	nonce, _ := st.ReadNonce(context.Background(), sender)
	require.EqualValues(t, 1, nonce)
}

func TestExecuteRejectsNonceMismatch(t *testing.T) {
	ex, st := newTestExecutor(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	st.SetBalance(sender, uint256.NewInt(1_000_000_000_000))
	st.SetNonce(sender, 5)

	to := common.Address{0x42}
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, To: &to, Value: big.NewInt(1), Gas: 30000, GasPrice: big.NewInt(1)})
	signer := types.NewLondonSigner(big.NewInt(testChainID))
	signedTx, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)
	raw, err := signedTx.MarshalBinary()
	require.NoError(t, err)

	_, err = ex.Execute(context.Background(), raw)
	require.Error(t, err)
}

func TestEstimateGasFindsMinimalSuccessfulLimit(t *testing.T) {
	ex, st := newTestExecutor(t)
	sender := common.Address{1}
	st.SetBalance(sender, uint256.NewInt(1_000_000_000_000))
	to := common.Address{2}

	gas, err := ex.EstimateGas(context.Background(), CallMsg{From: sender, To: &to, Value: big.NewInt(10)})
	require.NoError(t, err)
	require.Greater(t, gas, uint64(0))
}

// TestExecuteZkEnvelopePublishesFactoryDeps asserts that a zkSync
// EIP-712 envelope's factory-dependency bytecodes (spec.md §3/§4.5)
// are published into the state overlay under their own code hash,
// rather than decoded only to be discarded.
func TestExecuteZkEnvelopePublishesFactoryDeps(t *testing.T) {
	ex, st := newTestExecutor(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	st.SetBalance(sender, uint256.NewInt(1_000_000_000_000))

	to := common.Address{0x42}
	dep := make([]byte, 64)
	copy(dep, []byte{0x60, 0x00, 0x60, 0x00})
	env := &zktx.Envelope{
		ChainID:            big.NewInt(testChainID),
		Nonce:              0,
		GasFeeCap:          big.NewInt(1),
		GasTipCap:          big.NewInt(1),
		Gas:                100000,
		To:                 &to,
		Value:              big.NewInt(0),
		From:               sender,
		GasPerPubdataLimit: big.NewInt(800),
		FactoryDeps:        [][]byte{dep},
	}
	sig, err := crypto.Sign(env.SigningHash().Bytes(), key)
	require.NoError(t, err)
	raw := env.Encode(sig)

	receipt, err := ex.Execute(context.Background(), raw)
	require.NoError(t, err)
	require.EqualValues(t, 1, receipt.Status)

	depHash := crypto.Keccak256Hash(dep)
	code, ok := st.ReadCode(depHash)
	require.True(t, ok)
	require.Equal(t, dep, code)
}

func TestMineAppendsEmptyBlocksWithSteppedTimestamps(t *testing.T) {
	ex, _ := newTestExecutor(t)
	blocks, err := ex.Mine(100, 60)
	require.NoError(t, err)
	require.Len(t, blocks, 100)
	require.EqualValues(t, 100, ex.Chain.HeadNumber())
}

// TestMineTimestampMatchesScenarioFour asserts spec.md §8 scenario 4
// exactly: hardhat_mine(100, 60) from starting timestamp T leaves the
// head at T + 99*60 + 1 — the first block bumps by the default 1s
// inter-block delta, and only the remaining 99 blocks bump by the
// requested 60s interval.
func TestMineTimestampMatchesScenarioFour(t *testing.T) {
	ex, _ := newTestExecutor(t)
	const startTimestamp = 1000
	blocks, err := ex.Mine(100, 60)
	require.NoError(t, err)
	require.Len(t, blocks, 100)
	head, ok := ex.Chain.BlockByNumber(ex.Chain.HeadNumber())
	require.True(t, ok)
	require.EqualValues(t, startTimestamp+99*60+1, head.Timestamp)
	require.EqualValues(t, startTimestamp+1, blocks[0].Timestamp)
	require.EqualValues(t, startTimestamp+99*60+1, blocks[99].Timestamp)
}

func TestExecuteNotifiesPendingTransactionFilters(t *testing.T) {
	ex, st := newTestExecutor(t)
	id := ex.Filters.NewPendingTransactionFilter()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	st.SetBalance(sender, uint256.NewInt(1_000_000_000_000))

	to := common.Address{0x42}
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, To: &to, Value: big.NewInt(1), Gas: 30000, GasPrice: big.NewInt(1)})
	signer := types.NewLondonSigner(big.NewInt(testChainID))
	signedTx, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)
	raw, err := signedTx.MarshalBinary()
	require.NoError(t, err)

	receipt, err := ex.Execute(context.Background(), raw)
	require.NoError(t, err)

	changes, err := ex.Filters.GetFilterChanges(id)
	require.NoError(t, err)
	require.Equal(t, []common.Hash{receipt.TxHash}, changes)
}
