// Package rpcapi is the node's RPC Dispatcher: one receiver type per
// JSON-RPC namespace (eth, net, web3, zks, debug, evm, hardhat/anvil,
// config), registered with github.com/ethereum/go-ethereum/rpc.Server
// so method routing, parameter decoding, and error-to-JSON-RPC-object
// mapping are the teacher's own reflection-based dispatch rather than
// a hand-rolled switch on method name (spec.md §4.9).
package rpcapi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"

	"github.com/zksync-go/innode/internal/chain"
	"github.com/zksync-go/innode/internal/executor"
	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/rpcerr"
)

// CallArgs is the eth_call/eth_estimateGas/debug_traceCall transaction
// argument shape, matching the field names every Ethereum-compatible
// JSON-RPC client sends.
type CallArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

// toCallMsg converts the wire shape into the executor's normalized
// CallMsg, preferring "data" but accepting "input" as an alias the way
// every Ethereum client does.
func (a CallArgs) toCallMsg() executor.CallMsg {
	msg := executor.CallMsg{}
	if a.From != nil {
		msg.From = *a.From
	}
	msg.To = a.To
	if a.Gas != nil {
		msg.Gas = uint64(*a.Gas)
	}
	if a.GasPrice != nil {
		msg.GasPrice = a.GasPrice.ToInt()
	}
	if a.Value != nil {
		msg.Value = a.Value.ToInt()
	}
	switch {
	case a.Data != nil:
		msg.Data = *a.Data
	case a.Input != nil:
		msg.Data = *a.Input
	}
	return msg
}

// resolveBlockNumber maps an rpc.BlockNumber tag ("latest", "pending",
// "earliest", or a concrete height) to a concrete local/fork-relative
// block number. The caller must already hold at least a read guard on
// n.
func resolveBlockNumber(n *node.Node, bn gethrpc.BlockNumber) uint64 {
	switch bn {
	case gethrpc.LatestBlockNumber, gethrpc.PendingBlockNumber:
		// This node has no mempool (spec.md's explicit non-goal): a
		// submitted transaction is mined immediately, so "pending"
		// and "latest" coincide.
		return n.Chain.HeadNumber()
	case gethrpc.EarliestBlockNumber:
		return n.Chain.GenesisNumber()
	default:
		return uint64(bn.Int64())
	}
}

// resolveBlockNumberOrHash extends resolveBlockNumber to also accept a
// block hash parameter (eth_call's "block" argument, getLogs ranges).
func resolveBlockNumberOrHash(n *node.Node, bnh gethrpc.BlockNumberOrHash) (uint64, error) {
	if hash, ok := bnh.Hash(); ok {
		if blk, ok := n.Chain.BlockByHash(hash); ok {
			return blk.Number, nil
		}
		return 0, rpcerr.InvalidParams("unknown block hash %s", hash)
	}
	if bn, ok := bnh.Number(); ok {
		return resolveBlockNumber(n, bn), nil
	}
	return n.Chain.HeadNumber(), nil
}

// localBlockJSON renders a locally-appended chain.Block into the
// eth_getBlockBy* wire shape. fullTx controls whether the single
// transaction slot is rendered as a full object or just its hash.
func localBlockJSON(n *node.Node, b *chain.Block, fullTx bool) map[string]any {
	var txs []any
	if b.TxHash != nil {
		if fullTx {
			if loc, ok := n.Chain.TransactionLocation(*b.TxHash); ok {
				txs = []any{txJSON(loc)}
			}
		} else {
			txs = []any{*b.TxHash}
		}
	}
	if txs == nil {
		txs = []any{}
	}
	baseFee := b.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	return map[string]any{
		"number":           hexutil.Uint64(b.Number),
		"hash":             b.Hash,
		"parentHash":       b.ParentHash,
		"timestamp":        hexutil.Uint64(b.Timestamp),
		"baseFeePerGas":    (*hexutil.Big)(baseFee),
		"gasLimit":         hexutil.Uint64(b.GasLimit),
		"gasUsed":          hexutil.Uint64(b.GasUsed),
		"transactions":     txs,
		"logsBloom":        b.LogsBloom,
		"l1BatchNumber":    hexutil.Uint64(b.BatchNumber),
		"miner":            common.Address{},
		"extraData":        hexutil.Bytes{},
		"sha3Uncles":       types.EmptyUncleHash,
		"mixHash":          common.Hash{},
		"nonce":            types.BlockNonce{},
		"stateRoot":        common.Hash{},
		"transactionsRoot": common.Hash{},
		"receiptsRoot":     common.Hash{},
		"difficulty":       (*hexutil.Big)(new(big.Int)),
		"size":             hexutil.Uint64(0),
	}
}

// txJSON renders a located transaction into the eth_getTransactionBy*
// wire shape.
func txJSON(loc *chain.TxLocation) map[string]any {
	tx := loc.Tx
	v := map[string]any{
		"hash":             tx.Hash(),
		"nonce":            hexutil.Uint64(tx.Nonce()),
		"blockHash":        loc.BlockHash,
		"blockNumber":      hexutil.Uint64(loc.BlockNumber),
		"transactionIndex": hexutil.Uint64(loc.Index),
		"from":             senderOf(tx),
		"to":               tx.To(),
		"value":            (*hexutil.Big)(tx.Value()),
		"gas":              hexutil.Uint64(tx.Gas()),
		"input":            hexutil.Bytes(tx.Data()),
		"type":             hexutil.Uint64(tx.Type()),
		"chainId":          (*hexutil.Big)(tx.ChainId()),
		"v":                (*hexutil.Big)(big.NewInt(0)),
		"r":                (*hexutil.Big)(big.NewInt(0)),
		"s":                (*hexutil.Big)(big.NewInt(0)),
	}
	if gp := tx.GasPrice(); gp != nil {
		v["gasPrice"] = (*hexutil.Big)(gp)
	}
	if fc := tx.GasFeeCap(); fc != nil {
		v["maxFeePerGas"] = (*hexutil.Big)(fc)
	}
	if tc := tx.GasTipCap(); tc != nil {
		v["maxPriorityFeePerGas"] = (*hexutil.Big)(tc)
	}
	if v_, r, s := tx.RawSignatureValues(); v_ != nil {
		v["v"] = (*hexutil.Big)(v_)
		v["r"] = (*hexutil.Big)(r)
		v["s"] = (*hexutil.Big)(s)
	}
	return v
}

// senderOf recovers the transaction's sender for display purposes
// only; the executor already authenticated it at submission time, so
// recovery here cannot fail for anything this node itself produced.
func senderOf(tx *types.Transaction) common.Address {
	signer := types.LatestSignerForChainID(tx.ChainId())
	addr, err := types.Sender(signer, tx)
	if err != nil {
		return common.Address{}
	}
	return addr
}

// receiptJSON renders a receipt into the eth_getTransactionReceipt
// wire shape.
func receiptJSON(loc *chain.TxLocation) map[string]any {
	r := loc.Receipt
	logs := r.Logs
	if logs == nil {
		logs = []*types.Log{}
	}
	var contractAddr any
	if r.ContractAddress != (common.Address{}) {
		contractAddr = r.ContractAddress
	}
	return map[string]any{
		"transactionHash":   r.TxHash,
		"transactionIndex":  hexutil.Uint64(r.TransactionIndex),
		"blockHash":         r.BlockHash,
		"blockNumber":       (*hexutil.Big)(r.BlockNumber),
		"from":              senderOf(loc.Tx),
		"to":                loc.Tx.To(),
		"cumulativeGasUsed": hexutil.Uint64(r.CumulativeGasUsed),
		"gasUsed":           hexutil.Uint64(r.GasUsed),
		"contractAddress":   contractAddr,
		"logs":              logs,
		"logsBloom":         r.Bloom,
		"status":            hexutil.Uint64(r.Status),
		"type":              hexutil.Uint64(r.Type),
		"effectiveGasPrice": (*hexutil.Big)(r.EffectiveGasPrice),
		"l1BatchNumber":     nil,
	}
}

// uint256FromBig converts a *big.Int param to *uint256.Int, rejecting
// values that overflow 256 bits.
func uint256FromBig(v *big.Int) (*uint256.Int, error) {
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, rpcerr.InvalidParams("value overflows 256 bits")
	}
	return u, nil
}
