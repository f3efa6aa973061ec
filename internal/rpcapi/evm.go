package rpcapi

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/zksync-go/innode/internal/node"
)

// EvmAPI implements the evm_* namespace.
type EvmAPI struct {
	Node *node.Node
}

// Mine implements evm_mine: appends one empty block.
func (a *EvmAPI) Mine() (string, error) {
	var err error
	a.Node.Write(func(nd *node.Node) {
		_, err = nd.Executor.Mine(1, 0)
	})
	if err != nil {
		return "", err
	}
	return "0x0", nil
}

// IncreaseTime implements evm_increaseTime: adds delta seconds to the
// logical clock without producing a block. All evm_*/anvil_* time
// methods use seconds as their canonical unit (spec.md §9's time-unit
// note).
func (a *EvmAPI) IncreaseTime(deltaSeconds Quantity) hexutil.Uint64 {
	var now uint64
	a.Node.Write(func(nd *node.Node) { now = nd.Clock.IncreaseBy(uint64(deltaSeconds)) })
	return hexutil.Uint64(now)
}

// SetNextBlockTimestamp implements evm_setNextBlockTimestamp.
func (a *EvmAPI) SetNextBlockTimestamp(unix Quantity) {
	a.Node.Write(func(nd *node.Node) { nd.Clock.SetNext(uint64(unix)) })
}

// SetTime implements evm_setTime: may move the clock backwards.
func (a *EvmAPI) SetTime(unix Quantity) {
	a.Node.Write(func(nd *node.Node) { nd.Clock.Set(uint64(unix)) })
}

// Snapshot implements evm_snapshot.
func (a *EvmAPI) Snapshot() hexutil.Uint64 {
	var id uint64
	a.Node.Write(func(nd *node.Node) { id = nd.Snapshots.Snapshot() })
	return hexutil.Uint64(id)
}

// Revert implements evm_revert. An unknown or already-invalidated id
// surfaces as the unknown-snapshot JSON-RPC error (spec.md §7/§8),
// which takes precedence over §4.6's bare "returns false" phrasing.
func (a *EvmAPI) Revert(id Quantity) (bool, error) {
	var err error
	a.Node.Write(func(nd *node.Node) { err = nd.Snapshots.Revert(uint64(id)) })
	if err != nil {
		return false, err
	}
	return true, nil
}
