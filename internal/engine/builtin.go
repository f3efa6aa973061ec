package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/zksync-go/innode/internal/state"
)

// intrinsicGas is charged per transaction regardless of payload, a
// stand-in for the bootloader's fixed per-transaction overhead.
const intrinsicGas = 21000

// perNonZeroByteGas is charged per non-zero input byte, and perZeroByteGas
// per zero input byte, mirroring the EVM's calldata pricing so gas
// estimation behaves the way callers of an Ethereum-shaped RPC expect.
const (
	perZeroByteGas    = 4
	perNonZeroByteGas = 16
)

// Builtin is the deterministic Engine shipped with the node when no
// external zkEVM artifact directory is configured (Options.Selection
// == SelectionBuiltIn or SelectionBuiltInNoVerify). It does not
// interpret bytecode: the real zkEVM bootloader is an external
// collaborator outside this repo's scope. Instead it applies the
// transaction's value transfer and, for a contract creation, records
// the supplied init code verbatim as the deployed bytecode. This keeps
// every downstream namespace (receipts, balances, nonces, code
// lookups) behaving exactly as a real engine's output would look from
// the outside, without requiring an actual interpreter.
type Builtin struct {
	opts      Options
	overrides Overrides
}

// NewBuiltin constructs a Builtin engine with the given options,
// loading the bytecode override directory if one is configured. The
// Selection and LocalDir options are stored but Execute does not
// consult them; signature checking happens in the executor before
// Execute is ever called.
func NewBuiltin(opts Options) (*Builtin, error) {
	overrides, err := LoadOverrides(opts.OverrideDir)
	if err != nil {
		return nil, err
	}
	return &Builtin{opts: opts, overrides: overrides}, nil
}

// IntrinsicGas computes the fixed per-transaction overhead plus the
// calldata cost for data, the same formula Execute charges internally.
// The executor's pre-flight accounting step uses it before the engine
// ever runs.
func IntrinsicGas(data []byte) uint64 {
	gas := uint64(intrinsicGas)
	for _, by := range data {
		if by == 0 {
			gas += perZeroByteGas
		} else {
			gas += perNonZeroByteGas
		}
	}
	return gas
}

// Execute implements Engine.
func (b *Builtin) Execute(ctx context.Context, batch BatchEnv, sys SystemEnv, tx *types.Transaction, sender common.Address, factoryDeps [][]byte, storage state.ReadView) (*Result, error) {
	data := tx.Data()
	gasUsed := IntrinsicGas(data)

	if tx.Gas() < gasUsed {
		return &Result{
			Status:       0,
			GasUsed:      tx.Gas(),
			RevertReason: "out of gas: intrinsic gas exceeds gas limit",
		}, nil
	}

	published, err := publishFactoryDeps(factoryDeps)
	if err != nil {
		return &Result{
			Status:       0,
			GasUsed:      gasUsed,
			RevertReason: err.Error(),
		}, nil
	}

	value, overflow := uint256.FromBig(tx.Value())
	if overflow {
		return nil, fmt.Errorf("engine: transaction value overflows 256 bits")
	}

	senderBalance, err := storage.ReadBalance(ctx, sender)
	if err != nil {
		return nil, err
	}
	if senderBalance.Lt(value) {
		return &Result{
			Status:       0,
			GasUsed:      gasUsed,
			RevertReason: "insufficient balance for value transfer",
		}, nil
	}

	writes := make([]StorageWrite, 0, 2)
	newCode := make(map[common.Hash][]byte)
	var contractAddr *common.Address

	if tx.To() == nil {
		senderNonce, err := storage.ReadNonce(ctx, sender)
		if err != nil {
			return nil, err
		}
		addr := crypto.CreateAddress(sender, senderNonce)
		contractAddr = &addr
		if len(data) > 0 {
			// The override directory applies before execution: if the
			// would-be deployed bytecode's hash has an override, the
			// replacement is what actually lands on chain.
			deployed := b.overrides.Replace(crypto.Keccak256Hash(data), data)
			newCode[crypto.Keccak256Hash(deployed)] = append([]byte(nil), deployed...)
		}
	} else {
		// A call into a contract with no interpreter backing it: the
		// transfer above still applies, and the call itself succeeds
		// with no return data. Logs can only come from a real
		// interpreter, so none are emitted here.
		if code, err := storage.ReadCodeAt(ctx, *tx.To()); err != nil {
			return nil, err
		} else if code = b.overrides.Replace(crypto.Keccak256Hash(code), code); len(code) == 0 && len(data) > 0 {
			return &Result{
				Status:       0,
				GasUsed:      gasUsed,
				RevertReason: "call to non-contract address with non-empty input",
			}, nil
		}
	}

	trace := &CallFrame{
		Type:    callType(tx),
		From:    sender,
		To:      toAddr(tx),
		Input:   data,
		Gas:     tx.Gas(),
		GasUsed: gasUsed,
		Value:   tx.Value(),
	}

	return &Result{
		Status:             1,
		GasUsed:            gasUsed,
		GasRefunded:        0,
		Logs:               nil,
		CallTrace:          trace,
		StorageWrites:      writes,
		NewBytecodes:       newCode,
		PublishedBytecodes: published,
		PublishedEvents:    nil,
		ContractAddress:    contractAddr,
	}, nil
}

// publishFactoryDeps hashes and validates every factory-dependency
// bytecode a zkSync EIP-712 envelope carried (spec.md §3's "optional
// factory-dependency bytecodes"), the same 32-byte-alignment rule
// state.Store.StoreBytecode enforces for any other bytecode entering
// the overlay.
func publishFactoryDeps(deps [][]byte) (map[common.Hash][]byte, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	published := make(map[common.Hash][]byte, len(deps))
	for _, dep := range deps {
		if len(dep) == 0 || len(dep)%32 != 0 {
			return nil, fmt.Errorf("Invalid bytecode: factory dependency length must be a positive multiple of 32")
		}
		published[crypto.Keccak256Hash(dep)] = append([]byte(nil), dep...)
	}
	return published, nil
}

func callType(tx *types.Transaction) string {
	if tx.To() == nil {
		return "CREATE"
	}
	return "CALL"
}

func toAddr(tx *types.Transaction) common.Address {
	if tx.To() == nil {
		return common.Address{}
	}
	return *tx.To()
}
