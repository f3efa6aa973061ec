package rpcapi

import (
	"strconv"

	"github.com/zksync-go/innode/internal/node"
)

// NetAPI implements the net_* namespace.
type NetAPI struct {
	Node *node.Node
}

// Version implements net_version.
func (a *NetAPI) Version() string {
	return strconv.FormatUint(a.Node.Cfg.ChainID, 10)
}

// PeerCount implements net_peerCount: always zero, this node has no
// P2P layer (spec.md §1's explicit non-goal).
func (a *NetAPI) PeerCount() string { return "0x0" }

// Listening implements net_listening: always false.
func (a *NetAPI) Listening() bool { return false }
