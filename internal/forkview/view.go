// Package forkview composes a forkclient.Client into a read-only
// snapshot of a remote chain pinned at a fixed (L1 batch, L2 block)
// point. Once created, the pin never changes; every read below the
// pin resolves remotely, and the view implements state.ReadView so
// the state overlay can fall through to it transparently.
package forkview

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/zksync-go/innode/internal/forkclient"
	"github.com/zksync-go/innode/internal/rpcerr"
)

// View is a read-only, pinned remote chain snapshot.
type View struct {
	client    *forkclient.Client
	forkBlock uint64
	forkBatch uint64
}

// New pins a View at forkBlock/forkBatch. A nil client produces a
// View with no remote data: every read degrades to zero/empty, which
// is the correct behavior for a node started without -fork-url.
func New(client *forkclient.Client, forkBlock, forkBatch uint64) *View {
	return &View{client: client, forkBlock: forkBlock, forkBatch: forkBatch}
}

// ForkBlockNumber is the last L2 block number served by the remote;
// the local chain's numbering begins at ForkBlockNumber()+1.
func (v *View) ForkBlockNumber() uint64 { return v.forkBlock }

// ForkBatchNumber is the pinned L1 batch number.
func (v *View) ForkBatchNumber() uint64 { return v.forkBatch }

// Enabled reports whether this view actually has a remote to read
// from.
func (v *View) Enabled() bool { return v.client != nil }

// ReadSlot implements state.ReadView.
func (v *View) ReadSlot(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	if v.client == nil {
		return common.Hash{}, nil
	}
	h, err := v.client.GetStorageAt(ctx, addr, slot)
	if err != nil {
		return common.Hash{}, rpcerr.ForkUnavailable(err)
	}
	return h, nil
}

// ReadCodeAt implements state.ReadView: fetches the bytecode deployed
// at addr on the remote.
func (v *View) ReadCodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	if v.client == nil {
		return nil, nil
	}
	code, err := v.client.GetBytecode(ctx, addr)
	if err != nil {
		return nil, rpcerr.ForkUnavailable(err)
	}
	return code, nil
}

// ReadNonce implements state.ReadView.
func (v *View) ReadNonce(ctx context.Context, addr common.Address) (uint64, error) {
	if v.client == nil {
		return 0, nil
	}
	n, err := v.client.GetTransactionCount(ctx, addr)
	if err != nil {
		return 0, rpcerr.ForkUnavailable(err)
	}
	return n, nil
}

// ReadBalance implements state.ReadView.
func (v *View) ReadBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	if v.client == nil {
		return uint256.NewInt(0), nil
	}
	b, err := v.client.GetBalance(ctx, addr)
	if err != nil {
		return nil, rpcerr.ForkUnavailable(err)
	}
	return b, nil
}

// BlockByNumber fetches a remote block. number must be <= the fork
// point; callers above the fork point must use the local chain store
// instead.
func (v *View) BlockByNumber(ctx context.Context, number uint64) (*forkclient.BlockHeader, error) {
	if number > v.forkBlock {
		return nil, fmt.Errorf("forkview: block %d is above the fork point %d", number, v.forkBlock)
	}
	if v.client == nil {
		return nil, rpcerr.ForkUnavailable(fmt.Errorf("no fork configured"))
	}
	hdr, err := v.client.GetBlockByNumber(ctx, number)
	if err != nil {
		return nil, rpcerr.ForkUnavailable(err)
	}
	return hdr, nil
}

// BlockByHash fetches a remote block by hash; unlike BlockByNumber
// this cannot be range-checked against the pin before the call.
func (v *View) BlockByHash(ctx context.Context, hash common.Hash) (*forkclient.BlockHeader, error) {
	if v.client == nil {
		return nil, rpcerr.ForkUnavailable(fmt.Errorf("no fork configured"))
	}
	hdr, err := v.client.GetBlockByHash(ctx, hash)
	if err != nil {
		return nil, rpcerr.ForkUnavailable(err)
	}
	if hdr.Number > v.forkBlock {
		return nil, fmt.Errorf("forkview: block %s is above the fork point", hash)
	}
	return hdr, nil
}

// ConfirmedTokens proxies zks_getConfirmedTokens.
func (v *View) ConfirmedTokens(ctx context.Context, offset, limit uint32) ([]forkclient.ConfirmedToken, error) {
	if v.client == nil {
		return nil, nil
	}
	toks, err := v.client.GetConfirmedTokens(ctx, offset, limit)
	if err != nil {
		return nil, rpcerr.ForkUnavailable(err)
	}
	return toks, nil
}
