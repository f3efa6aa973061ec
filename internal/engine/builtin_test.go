package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/zksync-go/innode/internal/state"
)

func mustBuiltin(t *testing.T, opts Options) *Builtin {
	t.Helper()
	eng, err := NewBuiltin(opts)
	require.NoError(t, err)
	return eng
}

func newLegacyTx(to *common.Address, value int64, data []byte, gas uint64) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    0,
		To:       to,
		Value:    big.NewInt(value),
		Gas:      gas,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
}

func TestExecuteRejectsInsufficientGasLimit(t *testing.T) {
	eng := mustBuiltin(t, Options{Selection: SelectionBuiltIn})
	s := state.New(nil)
	sender := common.Address{1}
	s.SetBalance(sender, uint256.NewInt(1_000_000))

	to := common.Address{2}
	tx := newLegacyTx(&to, 0, nil, 1000)

	res, err := eng.Execute(context.Background(), BatchEnv{}, SystemEnv{}, tx, sender, nil, s)
	require.NoError(t, err)
	require.EqualValues(t, 0, res.Status)
	require.Contains(t, res.RevertReason, "out of gas")
}

func TestExecuteRejectsInsufficientBalance(t *testing.T) {
	eng := mustBuiltin(t, Options{Selection: SelectionBuiltIn})
	s := state.New(nil)
	sender := common.Address{1}
	s.SetBalance(sender, uint256.NewInt(10))

	to := common.Address{2}
	tx := newLegacyTx(&to, 1000, nil, 30000)

	res, err := eng.Execute(context.Background(), BatchEnv{}, SystemEnv{}, tx, sender, nil, s)
	require.NoError(t, err)
	require.EqualValues(t, 0, res.Status)
	require.Contains(t, res.RevertReason, "insufficient balance")
}

func TestExecuteSimpleTransferSucceeds(t *testing.T) {
	eng := mustBuiltin(t, Options{Selection: SelectionBuiltIn})
	s := state.New(nil)
	sender := common.Address{1}
	s.SetBalance(sender, uint256.NewInt(1_000_000))

	to := common.Address{2}
	tx := newLegacyTx(&to, 500, nil, 30000)

	res, err := eng.Execute(context.Background(), BatchEnv{}, SystemEnv{}, tx, sender, nil, s)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Status)
	require.EqualValues(t, intrinsicGas, res.GasUsed)
	require.Nil(t, res.ContractAddress)
}

func TestExecuteContractCreationRecordsBytecode(t *testing.T) {
	eng := mustBuiltin(t, Options{Selection: SelectionBuiltIn})
	s := state.New(nil)
	sender := common.Address{1}
	s.SetBalance(sender, uint256.NewInt(1_000_000))
	s.SetNonce(sender, 3)

	initCode := []byte{0x60, 0x00, 0x60, 0x00}
	tx := newLegacyTx(nil, 0, initCode, 100000)

	res, err := eng.Execute(context.Background(), BatchEnv{}, SystemEnv{}, tx, sender, nil, s)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Status)
	require.NotNil(t, res.ContractAddress)
	require.Equal(t, crypto.CreateAddress(sender, 3), *res.ContractAddress)
	require.Len(t, res.NewBytecodes, 1)
}

func TestExecuteCallToEmptyAddressWithDataFails(t *testing.T) {
	eng := mustBuiltin(t, Options{Selection: SelectionBuiltIn})
	s := state.New(nil)
	sender := common.Address{1}
	s.SetBalance(sender, uint256.NewInt(1_000_000))

	to := common.Address{9}
	tx := newLegacyTx(&to, 0, []byte{0x01, 0x02}, 100000)

	res, err := eng.Execute(context.Background(), BatchEnv{}, SystemEnv{}, tx, sender, nil, s)
	require.NoError(t, err)
	require.EqualValues(t, 0, res.Status)
	require.Contains(t, res.RevertReason, "non-contract")
}
