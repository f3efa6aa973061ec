// Package impersonation tracks which sender signatures the executor
// should bypass: either a single impersonated address, or every
// sender at once ("auto mode").
package impersonation

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry holds the node's current impersonation mode.
type Registry struct {
	mu       sync.Mutex
	single   *common.Address
	autoMode bool
}

// New returns a registry with no impersonation active.
func New() *Registry { return &Registry{} }

// Impersonate sets single-account mode, replacing any previously
// impersonated address (only one may be active at a time).
func (r *Registry) Impersonate(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := addr
	r.single = &a
}

// StopImpersonating clears single-account mode. Its argument, if any,
// is ignored by the caller (hardhat_stopImpersonatingAccount only
// needs one slot).
func (r *Registry) StopImpersonating() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.single = nil
}

// SetAutoImpersonate toggles auto mode (anvil_autoImpersonateAccount).
func (r *Registry) SetAutoImpersonate(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoMode = enabled
}

// IsImpersonated reports whether addr's signature should be bypassed.
// Nonce and balance checks are never affected by this: callers must
// still perform those independently.
func (r *Registry) IsImpersonated(addr common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.autoMode {
		return true
	}
	return r.single != nil && *r.single == addr
}

// State is an opaque, copyable snapshot of a Registry.
type State struct {
	single   *common.Address
	autoMode bool
}

// Snapshot captures the registry's full state.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := State{autoMode: r.autoMode}
	if r.single != nil {
		a := *r.single
		s.single = &a
	}
	return s
}

// Restore reinstates a previously captured State.
func (r *Registry) Restore(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoMode = s.autoMode
	if s.single != nil {
		a := *s.single
		r.single = &a
	} else {
		r.single = nil
	}
}
