package rpcapi

import (
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/nodelog"
	"github.com/zksync-go/innode/internal/tracer"
)

// NewServer builds a *gethrpc.Server with every namespace registered
// against nd. Method names are derived by gethrpc's own reflection
// (exported Go method -> lowercase-first-letter wire name), which is
// why receivers use names like ChainId rather than ChainID (spec.md
// §9's dispatcher note).
//
// hardhat_*/anvil_* aliasing is realized by registering the identical
// *HardhatAPI instance under both namespace names: there is exactly
// one impersonation/time/mining control surface, just reachable under
// two names, matching how real Hardhat/Anvil nodes behave.
func NewServer(nd *node.Node, logHandle *nodelog.Handle, resolver tracer.NameResolver) (*gethrpc.Server, error) {
	srv := gethrpc.NewServer()

	hardhat := &HardhatAPI{Node: nd}
	namespaces := map[string]any{
		"eth":     &EthAPI{Node: nd},
		"net":     &NetAPI{Node: nd},
		"web3":    &Web3API{},
		"zks":     &ZksAPI{Node: nd},
		"debug":   &DebugAPI{Node: nd, Resolver: resolver},
		"evm":     &EvmAPI{Node: nd},
		"hardhat": hardhat,
		"anvil":   hardhat,
		"config":  &ConfigAPI{Node: nd, Log: logHandle},
	}
	for namespace, receiver := range namespaces {
		if err := srv.RegisterName(namespace, receiver); err != nil {
			return nil, err
		}
	}
	return srv, nil
}
