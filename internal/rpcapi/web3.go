package rpcapi

// Web3API implements the web3_* namespace.
type Web3API struct{}

// ClientVersion implements web3_clientVersion: a fixed identification
// string (spec.md §6).
func (a *Web3API) ClientVersion() string { return "innode/v0.1.0" }
