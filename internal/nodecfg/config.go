// Package nodecfg defines the node's typed configuration: the struct
// and defaults cmd/innode wires into every other package. Parsing
// flags or a config file into this struct is an external collaborator
// (spec.md §1's explicit exclusion); this package only owns the
// shape and its defaults.
package nodecfg

import (
	"github.com/zksync-go/innode/internal/cache"
	"github.com/zksync-go/innode/internal/engine"
)

// DefaultChainID is the node's default L2 chain id (spec.md §6: 260).
const DefaultChainID uint64 = 260

// DefaultL1GasPrice is the fixed L1 gas price quoted in batches.
const DefaultL1GasPrice uint64 = 250_000_000

// DefaultProtocolVersion is the protocol version stamped on every
// locally-sealed batch.
const DefaultProtocolVersion = "Version24"

// DefaultBindAddr is the default JSON-RPC HTTP listen address.
const DefaultBindAddr = "127.0.0.1:8011"

// DefaultTokenPriceUSD is the fixed ETH price zks_getTokenPrice quotes.
const DefaultTokenPriceUSD = "1500"

// DefaultLogPath is the log file path used when none is configured.
const DefaultLogPath = "innode.log"

// Config is the node's full startup configuration.
type Config struct {
	// BindAddr is the JSON-RPC HTTP listen address.
	BindAddr string

	// ChainID is the L2 chain id reported by eth_chainId/net_version.
	ChainID uint64

	// ForkURL, if non-empty, pins the node to a remote zkSync Era
	// endpoint at ForkBlock (0 meaning "latest available").
	ForkURL   string
	ForkBlock uint64

	// CacheMode/CacheDir configure the fork response cache.
	CacheMode cache.Mode
	CacheDir  string

	// Engine carries the engine selection and directories; every
	// selection is currently served by the same Builtin engine.
	Engine engine.Options

	// L1GasPrice/ProtocolVersion are stamped on every locally-sealed
	// batch.
	L1GasPrice      uint64
	ProtocolVersion string

	// GenesisTimestamp seeds the logical clock. Zero means "now" is
	// resolved by cmd/innode at startup, never inside this package.
	GenesisTimestamp uint64

	// LogPath/LogLevel configure the node's structured logger.
	LogPath  string
	LogLevel string
}

// Default returns a Config populated with the node's default policy
// constants for a non-forked, built-in-engine node.
func Default() Config {
	return Config{
		BindAddr:        DefaultBindAddr,
		ChainID:         DefaultChainID,
		CacheMode:       cache.ModeMemory,
		Engine:          engine.Options{Selection: engine.SelectionBuiltIn},
		L1GasPrice:      DefaultL1GasPrice,
		ProtocolVersion: DefaultProtocolVersion,
		LogPath:         DefaultLogPath,
		LogLevel:        "info",
	}
}

// Option mutates a Config, used by cmd/innode to apply flag/config-file
// values without this package knowing where they came from.
type Option func(*Config)

// WithBindAddr overrides the HTTP listen address.
func WithBindAddr(addr string) Option { return func(c *Config) { c.BindAddr = addr } }

// WithFork pins the node to a remote endpoint at the given block (0
// for "latest").
func WithFork(url string, block uint64) Option {
	return func(c *Config) { c.ForkURL = url; c.ForkBlock = block }
}

// WithCache selects the fork-response cache tier.
func WithCache(mode cache.Mode, dir string) Option {
	return func(c *Config) { c.CacheMode = mode; c.CacheDir = dir }
}

// WithEngine overrides the engine selection/options.
func WithEngine(opts engine.Options) Option { return func(c *Config) { c.Engine = opts } }

// WithLogging overrides the log file path and level.
func WithLogging(path, level string) Option {
	return func(c *Config) { c.LogPath = path; c.LogLevel = level }
}

// New builds a Config starting from Default and applying opts in order.
func New(opts ...Option) Config {
	c := Default()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
