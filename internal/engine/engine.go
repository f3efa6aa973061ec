// Package engine defines the zkEVM port: the black-box interface
// spec.md §6 describes ("execute(batch_env, system_env, transaction,
// storage_view) -> {status, gas_used, ...}"). The embedded zkEVM
// bytecode runtime and bootloader artifacts themselves are an
// external collaborator, explicitly out of scope; this package only
// defines the boundary the Executor talks to, plus one deterministic
// Engine implementation (Builtin) good enough to drive the rest of
// the node end to end without a real bootloader.
package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/zksync-go/innode/internal/state"
)

// Selection names a bootloader/system-contract artifact source. The
// value is parsed and carried in Options, but the only Engine in this
// repository (Builtin) behaves identically for every Selection.
type Selection int

const (
	// SelectionBuiltIn names the artifacts compiled into the binary.
	SelectionBuiltIn Selection = iota
	// SelectionBuiltInNoVerify names the built-in artifacts with
	// signature verification disabled. Builtin has no separate code
	// path for it: signatures are checked by the Executor regardless.
	SelectionBuiltInNoVerify
	// SelectionLocal names artifacts in a user-supplied directory
	// (Options.LocalDir). Builtin does not read that directory.
	SelectionLocal
)

// String renders a Selection using the flag/config names cmd/innode
// accepts.
func (s Selection) String() string {
	switch s {
	case SelectionBuiltInNoVerify:
		return "built-in-no-verify"
	case SelectionLocal:
		return "local"
	default:
		return "built-in"
	}
}

// ParseSelection resolves a cmd/innode -engine flag value.
func ParseSelection(name string) (Selection, error) {
	switch name {
	case "", "built-in":
		return SelectionBuiltIn, nil
	case "built-in-no-verify":
		return SelectionBuiltInNoVerify, nil
	case "local":
		return SelectionLocal, nil
	default:
		return 0, fmt.Errorf("engine: unknown selection %q", name)
	}
}

// BatchEnv is the batch-level execution context: everything pinned
// once per batch before the single transaction runs.
type BatchEnv struct {
	Number          uint64
	Timestamp       uint64
	L1GasPrice      uint64
	ProtocolVersion string
	BaseFee         *big.Int
}

// SystemEnv is the chain-level execution context.
type SystemEnv struct {
	ChainID            uint64
	GasPerPubdataLimit uint64
}

// StorageWrite is one slot write the engine reports back for the
// Executor to apply on success.
type StorageWrite struct {
	Address common.Address
	Slot    common.Hash
	Value   common.Hash
}

// CallFrame is one node of the nested call trace, shaped to match the
// callTracer format (spec.md §4.5/§6).
type CallFrame struct {
	Type         string
	From         common.Address
	To           common.Address
	Input        []byte
	Output       []byte
	Gas          uint64
	GasUsed      uint64
	Value        *big.Int
	Calls        []*CallFrame
	Error        string
	RevertReason string
}

// Result is everything the bootloader reports back for one
// transaction, per spec.md §6's engine contract.
type Result struct {
	Status        uint8 // 1 success, 0 failure
	GasUsed       uint64
	GasRefunded   uint64
	Logs          []*types.Log
	CallTrace     *CallFrame
	StorageWrites []StorageWrite
	NewBytecodes  map[common.Hash][]byte
	// PublishedBytecodes holds zkSync EIP-712 factory-dependency
	// bytecodes (spec.md §3/§4.5/§6): published under their own code
	// hash, not bound to any deployed address the way NewBytecodes'
	// create-code entries are.
	PublishedBytecodes map[common.Hash][]byte
	PublishedEvents    []*types.Log
	RevertReason       string
	ContractAddress    *common.Address // set for a successful contract creation
}

// Engine is the zkEVM port. Implementations are handed a read-only
// storage view borrowed for the duration of one call; they never
// mutate it directly; they report a write set for the Executor to
// apply. It is the Executor's only dependency on an execution backend,
// never imported by any other package.
type Engine interface {
	// factoryDeps carries a zkSync EIP-712 envelope's optional
	// factory-dependency bytecodes (nil for every other envelope
	// shape and for eth_call); implementations publish them into
	// Result.PublishedBytecodes rather than deploying them at an
	// address.
	Execute(ctx context.Context, batch BatchEnv, sys SystemEnv, tx *types.Transaction, sender common.Address, factoryDeps [][]byte, storage state.ReadView) (*Result, error)
}

// Options configures which bootloader/system-contract source an
// Engine is built against, plus the bytecode override directory
// (spec.md §6's "directory of 0xHASH.json files").
type Options struct {
	Selection   Selection
	LocalDir    string
	OverrideDir string
}
