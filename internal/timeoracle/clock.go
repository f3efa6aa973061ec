// Package timeoracle provides the node's logical clock: a monotonic
// source of block timestamps with explicit warp/set primitives, so
// tests can control time deterministically instead of racing the wall
// clock.
package timeoracle

import "sync"

// DefaultIntervalSeconds is the default inter-block timestamp delta
// applied after a transaction-producing block.
const DefaultIntervalSeconds uint64 = 1

// Clock is a monotonic logical clock seeded at construction time and
// advanced only by explicit calls. It never reads the wall clock after
// New, so the node's timestamps are fully reproducible given the same
// call sequence.
type Clock struct {
	mu  sync.Mutex
	now uint64

	// nextOverride, if set, is consumed by the following Advance and
	// forces that block's timestamp regardless of the normal delta.
	nextOverride *uint64
}

// New creates a clock seeded at the given unix timestamp.
func New(seed uint64) *Clock {
	return &Clock{now: seed}
}

// Now returns the current logical timestamp.
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by delta seconds and returns the new
// timestamp, unless a pending SetNext override is consumed instead.
func (c *Clock) Advance(delta uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextOverride != nil {
		c.now = *c.nextOverride
		c.nextOverride = nil
		return c.now
	}
	c.now += delta
	return c.now
}

// IncreaseBy implements evm_increaseTime: adds delta seconds to the
// current time without producing a block. The effect is only observed
// on the next block's timestamp.
func (c *Clock) IncreaseBy(delta uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += delta
	return c.now
}

// Set implements evm_setTime: moves the clock to an absolute
// timestamp, which may be backwards in time per spec.
func (c *Clock) Set(unix uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = unix
}

// SetNext implements evm_setNextBlockTimestamp: the next Advance call
// uses this absolute value instead of now+delta.
func (c *Clock) SetNext(unix uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextOverride = &unix
}

// Snapshot captures the clock's full internal state for the snapshot
// manager.
func (c *Clock) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{Now: c.now}
	if c.nextOverride != nil {
		v := *c.nextOverride
		s.NextOverride = &v
	}
	return s
}

// Restore reinstates a previously captured State.
func (c *Clock) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = s.Now
	if s.NextOverride != nil {
		v := *s.NextOverride
		c.nextOverride = &v
	} else {
		c.nextOverride = nil
	}
}

// State is an opaque, copyable snapshot of a Clock.
type State struct {
	Now          uint64
	NextOverride *uint64
}
