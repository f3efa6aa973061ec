package rpcapi

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/nodecfg"
	"github.com/zksync-go/innode/internal/richaccounts"
)

func newTestNode(t *testing.T) *node.Node {
	t.Helper()
	nd, err := node.New(context.Background(), nodecfg.Default(), 1_700_000_000)
	require.NoError(t, err)
	return nd
}

// signedTransfer builds a signed legacy value-transfer transaction
// from rich account 0 to rich account 1, ready for eth_sendRawTransaction.
func signedTransfer(t *testing.T, nd *node.Node, nonce uint64, value int64) []byte {
	t.Helper()
	accs := richaccounts.All()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &accs[1].Address,
		Value:    big.NewInt(value),
		Gas:      100_000,
		GasPrice: big.NewInt(250_000_000),
	})
	signer := types.NewLondonSigner(new(big.Int).SetUint64(nd.Cfg.ChainID))
	signed, err := types.SignTx(tx, signer, accs[0].Key)
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func latestTag() gethrpc.BlockNumberOrHash {
	return gethrpc.BlockNumberOrHashWithNumber(gethrpc.LatestBlockNumber)
}

func TestEthChainIdAndBlockNumber(t *testing.T) {
	nd := newTestNode(t)
	eth := &EthAPI{Node: nd}

	require.Equal(t, hexutil.Uint64(nodecfg.DefaultChainID), eth.ChainId())
	require.Equal(t, hexutil.Uint64(0), eth.BlockNumber())
}

func TestSendRawTransactionAppendsBlockAndUpdatesBalances(t *testing.T) {
	nd := newTestNode(t)
	eth := &EthAPI{Node: nd}
	accs := richaccounts.All()

	raw := signedTransfer(t, nd, 0, 1_000)
	hash, err := eth.SendRawTransaction(context.Background(), raw)
	require.NoError(t, err)

	require.Equal(t, hexutil.Uint64(1), eth.BlockNumber())

	receipt := eth.GetTransactionReceipt(hash)
	require.NotNil(t, receipt)
	require.Equal(t, hexutil.Uint64(1), receipt["status"])

	bal, err := eth.GetBalance(context.Background(), accs[1].Address, latestTag())
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Add(richaccounts.InitialBalanceWei, big.NewInt(1_000)), bal.ToInt())
}

func TestEvmSnapshotRevertRoundTrip(t *testing.T) {
	nd := newTestNode(t)
	eth := &EthAPI{Node: nd}
	evm := &EvmAPI{Node: nd}

	id := evm.Snapshot()

	raw := signedTransfer(t, nd, 0, 500)
	_, err := eth.SendRawTransaction(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, hexutil.Uint64(1), eth.BlockNumber())

	ok, err := evm.Revert(Quantity(id))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, hexutil.Uint64(0), eth.BlockNumber())
}

func TestEvmRevertUnknownSnapshotIsError(t *testing.T) {
	nd := newTestNode(t)
	evm := &EvmAPI{Node: nd}

	ok, err := evm.Revert(Quantity(999))
	require.Error(t, err)
	require.False(t, ok)
}

func TestHardhatSetBalanceAndReset(t *testing.T) {
	nd := newTestNode(t)
	eth := &EthAPI{Node: nd}
	hh := &HardhatAPI{Node: nd}
	accs := richaccounts.All()

	err := hh.SetBalance(accs[0].Address, (*hexutil.Big)(big.NewInt(42)))
	require.NoError(t, err)

	bal, err := eth.GetBalance(context.Background(), accs[0].Address, latestTag())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), bal.ToInt())

	require.NoError(t, hh.Reset(context.Background(), nil))

	bal, err = eth.GetBalance(context.Background(), accs[0].Address, latestTag())
	require.NoError(t, err)
	require.Equal(t, richaccounts.InitialBalanceWei.String(), bal.ToInt().String())
}

func TestNetAndWeb3Namespaces(t *testing.T) {
	nd := newTestNode(t)
	net := &NetAPI{Node: nd}
	web3 := &Web3API{}

	require.Equal(t, "260", net.Version())
	require.False(t, net.Listening())
	require.NotEmpty(t, web3.ClientVersion())
}
