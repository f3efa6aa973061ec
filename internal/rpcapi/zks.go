package rpcapi

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/zksync-go/innode/internal/executor"
	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/nodecfg"
)

// ZksAPI implements the zks_* namespace (zkSync Era-specific methods).
type ZksAPI struct {
	Node *node.Node
}

// zksFeeEstimate is the zks_estimateFee wire shape.
type zksFeeEstimate struct {
	GasLimit             hexutil.Uint64 `json:"gas_limit"`
	GasPerPubdataLimit   hexutil.Uint64 `json:"gas_per_pubdata_limit"`
	MaxFeePerGas         hexutil.Uint64 `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas hexutil.Uint64 `json:"max_priority_fee_per_gas"`
}

// EstimateFee implements zks_estimateFee.
func (a *ZksAPI) EstimateFee(ctx context.Context, args CallArgs) (zksFeeEstimate, error) {
	var out zksFeeEstimate
	var err error
	a.Node.Write(func(nd *node.Node) {
		fee, e := nd.Executor.EstimateFee(ctx, args.toCallMsg())
		if e != nil {
			err = e
			return
		}
		out = zksFeeEstimate{
			GasLimit:             hexutil.Uint64(fee.GasLimit),
			GasPerPubdataLimit:   hexutil.Uint64(fee.GasPerPubdataLimit),
			MaxFeePerGas:         hexutil.Uint64(fee.MaxFeePerGas),
			MaxPriorityFeePerGas: hexutil.Uint64(fee.MaxPriorityFeePerGas),
		}
	})
	return out, err
}

// GetTokenPrice implements zks_getTokenPrice: a fixed policy constant
// (spec.md §6: "ETH token price fixed at 1 500").
func (a *ZksAPI) GetTokenPrice(common.Address) string {
	return nodecfg.DefaultTokenPriceUSD
}

// GetTransactionDetails implements zks_getTransactionDetails.
func (a *ZksAPI) GetTransactionDetails(ctx context.Context, hash common.Hash) (map[string]any, error) {
	var out map[string]any
	var err error
	a.Node.Read(func(nd *node.Node) {
		loc, ok := nd.Chain.TransactionLocation(hash)
		if !ok {
			if nd.ForkView.Enabled() {
				var raw json.RawMessage
				raw, err = nd.ForkClient.GetTransactionByHash(ctx, hash)
				if err == nil && len(raw) > 0 {
					out = map[string]any{"raw": raw}
				}
			}
			return
		}
		out = map[string]any{
			"txHash":           loc.Tx.Hash(),
			"status":           statusLabel(loc.Receipt.Status),
			"fee":              (*hexutil.Big)(loc.Receipt.EffectiveGasPrice),
			"gasPerPubdata":    hexutil.Uint64(executor.DefaultGasPerPubdataLimit),
			"initiatorAddress": senderOf(loc.Tx),
			"receivedAt":       hexutil.Uint64(0),
			"ethCommitTxHash":  nil,
			"ethProveTxHash":   nil,
			"ethExecuteTxHash": nil,
		}
	})
	return out, err
}

func statusLabel(status uint64) string {
	if status == 1 {
		return "verified"
	}
	return "failed"
}

// GetBlockDetails implements zks_getBlockDetails.
func (a *ZksAPI) GetBlockDetails(ctx context.Context, number hexutil.Uint64) (map[string]any, error) {
	var out map[string]any
	a.Node.Read(func(nd *node.Node) {
		blk, ok := nd.Chain.BlockByNumber(uint64(number))
		if !ok {
			return
		}
		out = map[string]any{
			"number":          hexutil.Uint64(blk.Number),
			"l1BatchNumber":   hexutil.Uint64(blk.BatchNumber),
			"timestamp":       hexutil.Uint64(blk.Timestamp),
			"rootHash":        blk.Hash,
			"status":          "verified",
			"commitTxHash":    nil,
			"proveTxHash":     nil,
			"executeTxHash":   nil,
			"operatorAddress": common.Address{},
			"protocolVersion": nd.Cfg.ProtocolVersion,
		}
	})
	return out, nil
}

// GetBridgeContracts implements zks_getBridgeContracts: this node has
// no L1 bridging (spec.md §1's explicit non-goal), so every address is
// the zero address.
func (a *ZksAPI) GetBridgeContracts() map[string]any {
	zero := common.Address{}
	return map[string]any{
		"l1Erc20DefaultBridge":  zero,
		"l2Erc20DefaultBridge":  zero,
		"l1WethBridge":          zero,
		"l2WethBridge":          zero,
		"l1SharedDefaultBridge": zero,
		"l2SharedDefaultBridge": zero,
	}
}

// GetRawBlockTransactions implements zks_getRawBlockTransactions.
func (a *ZksAPI) GetRawBlockTransactions(ctx context.Context, number hexutil.Uint64) ([]map[string]any, error) {
	var out []map[string]any
	a.Node.Read(func(nd *node.Node) {
		blk, ok := nd.Chain.BlockByNumber(uint64(number))
		if !ok || blk.TxHash == nil {
			out = []map[string]any{}
			return
		}
		loc, ok := nd.Chain.TransactionLocation(*blk.TxHash)
		if !ok {
			out = []map[string]any{}
			return
		}
		out = []map[string]any{txJSON(loc)}
	})
	return out, nil
}

// GetConfirmedTokens implements zks_getConfirmedTokens, proxying the
// fork client's paginated token list. A non-forked node has none.
func (a *ZksAPI) GetConfirmedTokens(ctx context.Context, from uint32, limit uint8) ([]map[string]any, error) {
	var out []map[string]any
	var err error
	a.Node.Read(func(nd *node.Node) {
		if !nd.ForkView.Enabled() {
			out = []map[string]any{}
			return
		}
		toks, e := nd.ForkView.ConfirmedTokens(ctx, from, uint32(limit))
		if e != nil {
			err = e
			return
		}
		out = make([]map[string]any, len(toks))
		for i, t := range toks {
			out[i] = map[string]any{
				"l1Address": t.L1Address,
				"l2Address": t.L2Address,
				"name":      t.Name,
				"symbol":    t.Symbol,
				"decimals":  t.Decimals,
			}
		}
	})
	return out, err
}

// GetAllAccountBalances implements zks_getAllAccountBalances: this
// node tracks only the base ETH balance per address (no token ledger
// beyond what the fork/state overlay already models), so the only
// entry is the ETH pseudo-token balance.
func (a *ZksAPI) GetAllAccountBalances(ctx context.Context, addr common.Address) (map[common.Hash]*hexutil.Big, error) {
	var out map[common.Hash]*hexutil.Big
	var err error
	a.Node.Read(func(nd *node.Node) {
		bal, e := nd.State.ReadBalance(ctx, addr)
		if e != nil {
			err = e
			return
		}
		out = map[common.Hash]*hexutil.Big{
			ethPseudoTokenHash: (*hexutil.Big)(bal.ToBig()),
		}
	})
	return out, err
}

// ethPseudoTokenHash is the well-known all-zero-but-one address zkSync
// Era uses to denote the native ETH balance in a token balance map,
// left-padded into a common.Hash slot key form for this endpoint's
// response shape.
var ethPseudoTokenHash = common.HexToHash("0x000000000000000000000000000000000000800A")
