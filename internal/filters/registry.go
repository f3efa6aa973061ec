// Package filters implements the Filter Registry: active log/block/
// pending-transaction filters with polling (cursor) semantics, built
// around github.com/ethereum/go-ethereum/eth/filters' own
// FilterCriteria wire shape rather than a hand-rolled one, so
// eth_newFilter/eth_getLogs decode parameters the same way the
// teacher's own JSON-RPC surface does.
package filters

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethfilters "github.com/ethereum/go-ethereum/eth/filters"

	"github.com/zksync-go/innode/internal/rpcerr"
)

// Criteria is a resolved FilterCriteria: FromBlock/ToBlock must already
// be concrete block numbers (the RPC layer resolves "latest"/"pending"
// tags before constructing one), so matching here never needs chain
// state.
type Criteria = ethfilters.FilterCriteria

// Kind distinguishes the three JSON-RPC filter flavors.
type Kind int

const (
	KindLog Kind = iota
	KindBlock
	KindPendingTx
)

type entry struct {
	kind     Kind
	criteria Criteria

	// allLogs accumulates every match since creation; getFilterLogs
	// reads it without resetting anything.
	allLogs []*types.Log
	// pendingLogs/pendingBlocks/pendingTxs accumulate since the last
	// getFilterChanges poll and are drained (reset to nil) by it.
	pendingLogs   []*types.Log
	pendingBlocks []common.Hash
	pendingTxs    []common.Hash
}

// Registry holds every active filter, keyed by a monotonically
// increasing id.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[uint64]*entry)}
}

// NewLogFilter installs a log filter and returns its id.
func (r *Registry) NewLogFilter(criteria Criteria) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries[r.nextID] = &entry{kind: KindLog, criteria: criteria}
	return r.nextID
}

// NewBlockFilter installs a block filter and returns its id.
func (r *Registry) NewBlockFilter() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries[r.nextID] = &entry{kind: KindBlock}
	return r.nextID
}

// NewPendingTransactionFilter installs a pending-transaction filter.
// Because this node has no mempool (spec.md's explicit non-goal), a
// submitted transaction is "pending" and "mined" in the same logical
// instant; the filter still reports its hash exactly once, on the
// first poll after submission.
func (r *Registry) NewPendingTransactionFilter() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries[r.nextID] = &entry{kind: KindPendingTx}
	return r.nextID
}

// Uninstall removes a filter. Returns false if it did not exist.
func (r *Registry) Uninstall(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// GetFilterChanges returns whatever accumulated since the last poll
// (or since creation, for the first poll) and resets that cursor.
// The concrete slice type depends on the filter's Kind: []*types.Log
// for KindLog, []common.Hash otherwise.
func (r *Registry) GetFilterChanges(id uint64) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, rpcerr.InvalidParams("filter not found")
	}
	switch e.kind {
	case KindLog:
		out := e.pendingLogs
		e.pendingLogs = nil
		if out == nil {
			out = []*types.Log{}
		}
		return out, nil
	case KindBlock:
		out := e.pendingBlocks
		e.pendingBlocks = nil
		if out == nil {
			out = []common.Hash{}
		}
		return out, nil
	default:
		out := e.pendingTxs
		e.pendingTxs = nil
		if out == nil {
			out = []common.Hash{}
		}
		return out, nil
	}
}

// GetFilterLogs returns the full match set accumulated since creation,
// without advancing any cursor. Only valid for log filters.
func (r *Registry) GetFilterLogs(id uint64) ([]*types.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, rpcerr.InvalidParams("filter not found")
	}
	if e.kind != KindLog {
		return nil, rpcerr.InvalidParams("filter is not a log filter")
	}
	out := make([]*types.Log, len(e.allLogs))
	copy(out, e.allLogs)
	return out, nil
}

// NotifyLog advances every log filter whose criteria matches log,
// called by the executor once per emitted log.
func (r *Registry) NotifyLog(log *types.Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.kind != KindLog {
			continue
		}
		if !matches(e.criteria, log) {
			continue
		}
		e.allLogs = append(e.allLogs, log)
		e.pendingLogs = append(e.pendingLogs, log)
	}
}

// NotifyBlock advances every block filter.
func (r *Registry) NotifyBlock(hash common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.kind == KindBlock {
			e.pendingBlocks = append(e.pendingBlocks, hash)
		}
	}
}

// NotifyPendingTransaction advances every pending-tx filter.
func (r *Registry) NotifyPendingTransaction(hash common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.kind == KindPendingTx {
			e.pendingTxs = append(e.pendingTxs, hash)
		}
	}
}

// Matches reports whether a log satisfies a resolved FilterCriteria,
// exported so eth_getLogs can reuse it without installing a filter.
func Matches(criteria Criteria, log *types.Log) bool { return matches(criteria, log) }

func matches(c Criteria, log *types.Log) bool {
	blockNum := int64(log.BlockNumber)
	if c.FromBlock != nil && blockNum < c.FromBlock.Int64() {
		return false
	}
	if c.ToBlock != nil && blockNum > c.ToBlock.Int64() {
		return false
	}
	if len(c.Addresses) > 0 {
		found := false
		for _, a := range c.Addresses {
			if a == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range c.Topics {
		if len(alternatives) == 0 {
			continue // wildcard position
		}
		if i >= len(log.Topics) {
			return false
		}
		found := false
		for _, want := range alternatives {
			if want == log.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Snapshot/Restore support the snapshot manager: filters are part of
// the node's logical world and must roll back with everything else.

// State is an opaque, deep-copyable snapshot of a Registry.
type State struct {
	nextID  uint64
	entries map[uint64]*entry
}

// Snapshot captures the registry's full state.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[uint64]*entry, len(r.entries))
	for id, e := range r.entries {
		cp[id] = cloneEntry(e)
	}
	return State{nextID: r.nextID, entries: cp}
}

// Restore reinstates a previously captured State.
func (r *Registry) Restore(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = s.nextID
	cp := make(map[uint64]*entry, len(s.entries))
	for id, e := range s.entries {
		cp[id] = cloneEntry(e)
	}
	r.entries = cp
}

func cloneEntry(e *entry) *entry {
	clone := &entry{kind: e.kind, criteria: e.criteria}
	clone.allLogs = append([]*types.Log(nil), e.allLogs...)
	clone.pendingLogs = append([]*types.Log(nil), e.pendingLogs...)
	clone.pendingBlocks = append([]common.Hash(nil), e.pendingBlocks...)
	clone.pendingTxs = append([]common.Hash(nil), e.pendingTxs...)
	return clone
}
