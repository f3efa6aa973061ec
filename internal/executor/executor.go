// Package executor implements the node's single write path: decoding
// a submitted transaction, running it against the embedded engine,
// and — on success — committing the resulting block, batch, receipt
// and storage writes, grounded on the assemble-one-block-around-one-
// message pattern used by deterministic single-tx chain test
// harnesses (see DESIGN.md).
package executor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/zksync-go/innode/internal/chain"
	"github.com/zksync-go/innode/internal/engine"
	"github.com/zksync-go/innode/internal/filters"
	"github.com/zksync-go/innode/internal/impersonation"
	"github.com/zksync-go/innode/internal/rpcerr"
	"github.com/zksync-go/innode/internal/state"
	"github.com/zksync-go/innode/internal/timeoracle"
	"github.com/zksync-go/innode/internal/zktx"
)

// InterBlockDelta is the default number of seconds the clock advances
// after every transaction-producing block (spec §4.5, step 5).
const InterBlockDelta = 1

// CallMsg is the normalized shape of eth_call/estimateGas/traceCall
// parameters and of a decoded, ready-to-run transaction.
type CallMsg struct {
	From     common.Address
	To       *common.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

// Executor is the node's only write path. Every field is a reference
// to state the node owns; the Executor itself holds no world data.
type Executor struct {
	State         *state.Store
	Chain         *chain.Store
	Clock         *timeoracle.Clock
	Filters       *filters.Registry
	Impersonation *impersonation.Registry
	Engine        engine.Engine
	ChainID       uint64

	l1GasPrice      uint64
	protocolVersion string
}

// New constructs an Executor over the given world components.
func New(st *state.Store, ch *chain.Store, clk *timeoracle.Clock, flt *filters.Registry, imp *impersonation.Registry, eng engine.Engine, chainID uint64, l1GasPrice uint64, protocolVersion string) *Executor {
	return &Executor{
		State:           st,
		Chain:           ch,
		Clock:           clk,
		Filters:         flt,
		Impersonation:   imp,
		Engine:          eng,
		ChainID:         chainID,
		l1GasPrice:      l1GasPrice,
		protocolVersion: protocolVersion,
	}
}

// decodedTx is a submitted transaction reduced to the fields the
// executor's pre-flight and commit steps need, independent of whether
// it arrived as a standard Ethereum envelope or a zkSync EIP-712 one.
type decodedTx struct {
	stdTx       *types.Transaction
	sender      common.Address
	factoryDeps [][]byte
}

// decodeAndAuthenticate implements step 1 of the algorithm in spec
// §4.5: decode the envelope, and verify the claimed sender's signature
// unless that sender is currently impersonated.
func (e *Executor) decodeAndAuthenticate(raw []byte) (*decodedTx, error) {
	if len(raw) == 0 {
		return nil, rpcerr.InvalidTransaction("empty transaction payload")
	}

	if raw[0] == zktx.EnvelopeType {
		env, err := zktx.Decode(raw)
		if err != nil {
			return nil, err
		}
		if !e.Impersonation.IsImpersonated(env.From) {
			recovered, err := zktx.RecoverSender(env, env.Signature)
			if err != nil {
				return nil, err
			}
			if recovered != env.From {
				return nil, rpcerr.InvalidTransaction("signature does not match claimed sender")
			}
		}
		return &decodedTx{stdTx: env.AsStandardTransaction(), sender: env.From, factoryDeps: env.FactoryDeps}, nil
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, rpcerr.InvalidTransaction(fmt.Sprintf("malformed transaction: %v", err))
	}
	signer := types.NewLondonSigner(new(big.Int).SetUint64(e.ChainID))
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, rpcerr.InvalidTransaction(fmt.Sprintf("signature recovery failed: %v", err))
	}
	return &decodedTx{stdTx: tx, sender: sender}, nil
}

// preflight implements step 2: intrinsic gas, balance, and nonce
// checks, none of which mutate state.
func (e *Executor) preflight(ctx context.Context, dtx *decodedTx) error {
	tx := dtx.stdTx
	needed := engine.IntrinsicGas(tx.Data())
	if tx.Gas() < needed {
		return rpcerr.GasLimitExceeded(fmt.Sprintf("intrinsic gas %d exceeds gas limit %d", needed, tx.Gas()))
	}

	maxFee := tx.GasFeeCap()
	if maxFee == nil {
		maxFee = tx.GasPrice()
	}
	cost, overflow := uint256.FromBig(new(big.Int).Add(
		new(big.Int).Mul(maxFee, new(big.Int).SetUint64(tx.Gas())),
		tx.Value(),
	))
	if overflow {
		return rpcerr.InvalidTransaction("transaction cost overflows 256 bits")
	}
	balance, err := e.State.ReadBalance(ctx, dtx.sender)
	if err != nil {
		return err
	}
	if balance.Lt(cost) {
		return rpcerr.InsufficientFunds(dtx.sender)
	}

	expectedNonce, err := e.State.ReadNonce(ctx, dtx.sender)
	if err != nil {
		return err
	}
	if tx.Nonce() != expectedNonce {
		return rpcerr.NonceMismatch(expectedNonce, tx.Nonce())
	}
	return nil
}

// Execute runs the full algorithm of spec §4.5 against a raw
// transaction payload and returns the committed receipt.
func (e *Executor) Execute(ctx context.Context, raw []byte) (*types.Receipt, error) {
	dtx, err := e.decodeAndAuthenticate(raw)
	if err != nil {
		return nil, err
	}
	if err := e.preflight(ctx, dtx); err != nil {
		return nil, err
	}

	clockState := e.Clock.Snapshot()
	batchEnv := engine.BatchEnv{
		Number:          e.Chain.HeadBatchNumber() + 1,
		Timestamp:       e.Clock.Advance(InterBlockDelta),
		L1GasPrice:      e.l1GasPrice,
		ProtocolVersion: e.protocolVersion,
		BaseFee:         FixedBaseFee(),
	}
	sysEnv := engine.SystemEnv{ChainID: e.ChainID, GasPerPubdataLimit: DefaultGasPerPubdataLimit}

	result, err := e.Engine.Execute(ctx, batchEnv, sysEnv, dtx.stdTx, dtx.sender, dtx.factoryDeps, e.State)
	if err != nil {
		// An unexpected engine error never leaves partial state: the
		// state overlay was never touched because Execute only
		// returns a report, it does not mutate storage itself, and
		// the clock advance is rolled back here.
		e.Clock.Restore(clockState)
		return nil, rpcerr.Internal(fmt.Sprintf("engine execution failed: %v", err))
	}

	return e.commit(ctx, dtx, batchEnv, result)
}

// commit implements step 5 and 6: apply writes on success, always
// append a receipt, debit gas, and notify filters.
func (e *Executor) commit(ctx context.Context, dtx *decodedTx, batchEnv engine.BatchEnv, result *engine.Result) (*types.Receipt, error) {
	tx := dtx.stdTx
	effectiveGasPrice := new(big.Int).SetUint64(FixedGasPrice)
	gasCost := new(big.Int).Mul(effectiveGasPrice, new(big.Int).SetUint64(result.GasUsed))

	if result.Status == 1 {
		for _, w := range result.StorageWrites {
			e.State.WriteSlot(w.Address, w.Slot, w.Value)
		}
		for hash, code := range result.NewBytecodes {
			addr := dtx.sender
			if result.ContractAddress != nil {
				addr = *result.ContractAddress
			}
			if err := e.State.SetCode(addr, hash, code); err != nil {
				return nil, err
			}
		}
		for hash, code := range result.PublishedBytecodes {
			if err := e.State.StoreBytecode(hash, code); err != nil {
				return nil, err
			}
		}
		if tx.Value().Sign() > 0 && tx.To() != nil {
			value, overflow := uint256.FromBig(tx.Value())
			if overflow {
				return nil, rpcerr.Internal("transaction value overflows 256 bits")
			}
			if err := e.State.SubBalance(ctx, dtx.sender, value); err != nil {
				return nil, err
			}
			if err := e.State.AddBalance(ctx, *tx.To(), value); err != nil {
				return nil, err
			}
		}
		if err := e.State.IncrementNonce(ctx, dtx.sender); err != nil {
			return nil, err
		}
	}

	if cost, overflow := uint256.FromBig(gasCost); !overflow {
		if err := e.State.SubBalance(ctx, dtx.sender, cost); err != nil {
			return nil, err
		}
	}

	receipt := buildReceipt(tx, result, effectiveGasPrice)
	block, _, err := e.Chain.AppendTransactionBlock(
		batchEnv.Timestamp, gasLimitFor(tx), result.GasUsed, batchEnv.BaseFee, tx,
		receipt, e.l1GasPrice, e.protocolVersion, result.CallTrace,
	)
	if err != nil {
		return nil, err
	}

	for _, log := range result.Logs {
		log.BlockHash = block.Hash
		log.BlockNumber = block.Number
		e.Filters.NotifyLog(log)
	}
	e.Filters.NotifyBlock(block.Hash)
	// No mempool: the transaction is "pending" and mined in the same
	// logical instant, so pending-tx filters see it exactly once, here.
	e.Filters.NotifyPendingTransaction(tx.Hash())

	return receipt, nil
}

func gasLimitFor(tx *types.Transaction) uint64 { return tx.Gas() }

func buildReceipt(tx *types.Transaction, result *engine.Result, effectiveGasPrice *big.Int) *types.Receipt {
	r := &types.Receipt{
		Type:              tx.Type(),
		Status:            uint64(result.Status),
		TxHash:            tx.Hash(),
		GasUsed:           result.GasUsed,
		CumulativeGasUsed: result.GasUsed,
		EffectiveGasPrice: effectiveGasPrice,
		Logs:              result.Logs,
		ContractAddress:   common.Address{},
	}
	if result.ContractAddress != nil {
		r.ContractAddress = *result.ContractAddress
	}
	r.Bloom = types.CreateBloom(types.Receipts{r})
	return r
}

// Call implements eth_call/debug_traceCall: run the engine against the
// committed state without applying any write set or advancing the
// chain (spec §4.5's edge policy).
func (e *Executor) Call(ctx context.Context, msg CallMsg) (*engine.Result, error) {
	tx := callMsgToTx(msg)
	batchEnv := engine.BatchEnv{
		Number:          e.Chain.HeadBatchNumber(),
		Timestamp:       e.Clock.Now(),
		L1GasPrice:      e.l1GasPrice,
		ProtocolVersion: e.protocolVersion,
		BaseFee:         FixedBaseFee(),
	}
	sysEnv := engine.SystemEnv{ChainID: e.ChainID, GasPerPubdataLimit: DefaultGasPerPubdataLimit}
	return e.Engine.Execute(ctx, batchEnv, sysEnv, tx, msg.From, nil, e.State)
}

// EstimateGas binary-searches the minimum gas limit between the
// intrinsic floor and a generous ceiling at which the call succeeds,
// per spec §4.5.
func (e *Executor) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	const safetyMargin = 1000
	lo := engine.IntrinsicGas(msg.Data)
	hi := uint64(30_000_000)
	if msg.Gas != 0 && msg.Gas > lo {
		hi = msg.Gas
	}

	succeeds := func(gas uint64) (bool, error) {
		m := msg
		m.Gas = gas
		res, err := e.Call(ctx, m)
		if err != nil {
			return false, err
		}
		return res.Status == 1, nil
	}

	ok, err := succeeds(hi)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, rpcerr.ExecutionReverted("gas required exceeds allowance")
	}

	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := succeeds(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return hi + safetyMargin, nil
}

// EstimateFee implements zks_estimateFee.
func (e *Executor) EstimateFee(ctx context.Context, msg CallMsg) (FeeEstimate, error) {
	gasLimit, err := e.EstimateGas(ctx, msg)
	if err != nil {
		return FeeEstimate{}, err
	}
	return FeeEstimate{
		GasLimit:             gasLimit,
		GasPerPubdataLimit:   DefaultGasPerPubdataLimit,
		MaxFeePerGas:         FixedGasPrice,
		MaxPriorityFeePerGas: MaxPriorityFeePerGas,
	}, nil
}

// Mine implements hardhat_mine/evm_mine: append n empty blocks whose
// timestamps step by intervalSeconds, doing only bookkeeping (no
// engine invocation). Each block is still materialized individually,
// so the cost grows linearly with n (one set of map inserts per
// block). Per spec §8 scenario 4, the first block bumps by the
// default inter-block delta and every subsequent block bumps by
// intervalSeconds — only blocks after the first actually use the
// requested interval.
func (e *Executor) Mine(n uint64, intervalSeconds uint64) ([]*chain.Block, error) {
	if n == 0 {
		n = 1
	}
	if intervalSeconds == 0 {
		intervalSeconds = InterBlockDelta
	}
	first := true
	next := func() uint64 {
		delta := intervalSeconds
		if first {
			delta = InterBlockDelta
			first = false
		}
		return e.Clock.Advance(delta)
	}
	return e.Chain.AppendEmptyBlocks(n, 30_000_000, FixedBaseFee(), next)
}

func callMsgToTx(msg CallMsg) *types.Transaction {
	gasPrice := msg.GasPrice
	if gasPrice == nil {
		gasPrice = FixedBaseFee()
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    0,
		To:       msg.To,
		Value:    value,
		Gas:      msg.Gas,
		GasPrice: gasPrice,
		Data:     msg.Data,
	})
}
