package rpcapi

import (
	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/nodelog"
)

// ConfigAPI implements the config_* namespace: runtime log control
// (spec.md §9's logging note). Nothing else in spec.md's config
// surface is wired to RPC — bind address, chain id, and fork selection
// are startup-only, set by cmd/innode before the server ever accepts
// a connection.
type ConfigAPI struct {
	Node *node.Node
	Log  *nodelog.Handle
}

// SetLogLevel implements config_setLogLevel.
func (a *ConfigAPI) SetLogLevel(level string) error {
	return a.Log.SetLevel(level)
}

// SetLogging implements config_setLogging: toggles whether the node
// emits its per-request activity log, sharing the same flag
// hardhat_setLoggingEnabled/anvil_setLoggingEnabled use.
func (a *ConfigAPI) SetLogging(enabled bool) {
	a.Node.SetLoggingEnabled(enabled)
}
