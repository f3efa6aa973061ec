// Package cache implements the node's two-tier fork-response cache:
// a bounded in-memory tier backed by VictoriaMetrics/fastcache, and an
// optional write-through disk tier. Entries are addressed by a
// fingerprint of the originating fork RPC request, which is immutable
// for the lifetime of a pinned fork point, so entries never expire and
// never need invalidation beyond an explicit Reset.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/VictoriaMetrics/fastcache"
)

// Mode selects the cache tier(s) in use.
type Mode int

const (
	// ModeNone bypasses the cache: every lookup is a miss.
	ModeNone Mode = iota
	// ModeMemory uses only the bounded in-memory tier.
	ModeMemory
	// ModeDisk uses the in-memory tier backed by a write-through disk
	// tier, surviving process restarts.
	ModeDisk
)

// defaultMemoryBytes bounds the fastcache instance. fastcache rounds
// this up internally to whole buckets and evicts the oldest entries
// once full. The bound is a byte size, not an entry count, and it is
// fixed: no configuration option changes it.
const defaultMemoryBytes = 64 * 1024 * 1024

// Fingerprint uniquely identifies one fork RPC request: the remote
// endpoint, the pinned batch it was answered against, the method, and
// its parameters.
type Fingerprint struct {
	EndpointID  string
	PinnedBatch uint64
	Method      string
	Params      any
}

// key hashes a Fingerprint into a stable, fixed-length cache key.
func (f Fingerprint) key() string {
	raw, _ := json.Marshal(struct {
		E string
		B uint64
		M string
		P any
	}{f.EndpointID, f.PinnedBatch, f.Method, f.Params})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Cache is the two-tier fork-response cache.
type Cache struct {
	mode Mode
	mem  *fastcache.Cache
	dir  string
}

// New constructs a Cache in the given mode. dir is required (and must
// be writable) only for ModeDisk.
func New(mode Mode, dir string) (*Cache, error) {
	c := &Cache{mode: mode}
	if mode == ModeNone {
		return c, nil
	}
	c.mem = fastcache.New(defaultMemoryBytes)
	if mode == ModeDisk {
		if dir == "" {
			return nil, fmt.Errorf("cache: disk mode requires a directory")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create disk cache dir: %w", err)
		}
		c.dir = dir
	}
	return c, nil
}

// Get returns the cached bytes for fp and true on a hit. A hit never
// triggers network I/O by construction: the caller only reaches the
// fork client on a miss.
func (c *Cache) Get(fp Fingerprint) ([]byte, bool) {
	if c.mode == ModeNone {
		return nil, false
	}
	key := []byte(fp.key())
	if v := c.mem.GetBig(nil, key); v != nil {
		return v, true
	}
	if c.mode == ModeDisk {
		if v, err := os.ReadFile(c.diskPath(fp)); err == nil {
			c.mem.SetBig(key, v)
			return v, true
		}
	}
	return nil, false
}

// Set stores value under fp's fingerprint in every active tier.
func (c *Cache) Set(fp Fingerprint, value []byte) error {
	if c.mode == ModeNone {
		return nil
	}
	key := []byte(fp.key())
	c.mem.SetBig(key, value)
	if c.mode == ModeDisk {
		return writeFileAtomic(c.diskPath(fp), value)
	}
	return nil
}

// Reset clears every entry belonging to the given endpoint.
//
// The in-memory tier has no per-endpoint index, so a reset drops the
// whole tier; this is acceptable because resets are rare (fork
// reconfiguration) and the tier simply repopulates from subsequent
// reads. The disk tier's files are namespaced by endpoint and are
// removed individually.
func (c *Cache) Reset(endpointID string) error {
	if c.mode == ModeNone {
		return nil
	}
	c.mem.Reset()
	if c.mode != ModeDisk {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	prefix := endpointPrefix(endpointID)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if len(e.Name()) >= len(prefix) && e.Name()[:len(prefix)] == prefix {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

func endpointPrefix(endpointID string) string {
	sum := sha256.Sum256([]byte(endpointID))
	return hex.EncodeToString(sum[:4]) + "-"
}

func (c *Cache) diskPath(fp Fingerprint) string {
	return filepath.Join(c.dir, endpointPrefix(fp.EndpointID)+fp.key()+".json")
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by rename, so concurrent writers to the same
// fingerprint never observe a torn file; the slower writer's content
// simply wins the race, which is safe because the content for a given
// fingerprint is deterministic.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "cache-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
