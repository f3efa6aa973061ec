package rpcapi

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/zksync-go/innode/internal/chain"
	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/rpcerr"
	"github.com/zksync-go/innode/internal/tracer"
)

// DebugAPI implements the debug_* namespace. Only the callTracer shape
// is supported (spec.md §6).
type DebugAPI struct {
	Node     *node.Node
	Resolver tracer.NameResolver
}

// TraceConfig is the {tracer, tracerConfig: {onlyTopCall}} parameter
// shape debug_trace* accepts. Only "callTracer" is supported; any
// other tracer name is rejected with invalid-parameters.
type TraceConfig struct {
	Tracer       *string       `json:"tracer"`
	TracerConfig *traceCallCfg `json:"tracerConfig"`
}

type traceCallCfg struct {
	OnlyTopCall bool `json:"onlyTopCall"`
}

func (c *TraceConfig) validate() error {
	if c == nil || c.Tracer == nil {
		return nil
	}
	if *c.Tracer != "callTracer" {
		return rpcerr.InvalidParams("unsupported tracer %q: only callTracer is implemented", *c.Tracer)
	}
	return nil
}

func (c *TraceConfig) onlyTopCall() bool {
	if c == nil || c.TracerConfig == nil {
		return false
	}
	return c.TracerConfig.OnlyTopCall
}

// TraceCall implements debug_traceCall. The block parameter must be
// "latest" or omitted; any other value is invalid-parameters per
// spec.md §6.
func (a *DebugAPI) TraceCall(ctx context.Context, args CallArgs, blockTag *gethrpc.BlockNumberOrHash, cfg *TraceConfig) (*tracer.Frame, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if blockTag != nil {
		if _, isHash := blockTag.Hash(); isHash {
			return nil, rpcerr.InvalidParams("debug_traceCall only supports the \"latest\" block tag")
		}
		if bn, ok := blockTag.Number(); ok && bn != gethrpc.LatestBlockNumber {
			return nil, rpcerr.InvalidParams("debug_traceCall only supports the \"latest\" block tag")
		}
	}
	var out *tracer.Frame
	var err error
	a.Node.Write(func(nd *node.Node) {
		res, e := nd.Executor.Call(ctx, args.toCallMsg())
		if e != nil {
			err = e
			return
		}
		out = tracer.Render(res.CallTrace, tracer.Options{OnlyTopCall: cfg.onlyTopCall(), Resolver: a.Resolver})
	})
	return out, err
}

// TraceTransaction implements debug_traceTransaction: re-renders the
// call trace captured at the time the transaction was committed.
func (a *DebugAPI) TraceTransaction(ctx context.Context, hash common.Hash, cfg *TraceConfig) (*tracer.Frame, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var out *tracer.Frame
	a.Node.Read(func(nd *node.Node) {
		loc, ok := nd.Chain.TransactionLocation(hash)
		if !ok {
			return
		}
		out = tracer.Render(loc.Trace, tracer.Options{OnlyTopCall: cfg.onlyTopCall(), Resolver: a.Resolver})
	})
	return out, nil
}

// TraceBlockByHash implements debug_traceBlockByHash.
func (a *DebugAPI) TraceBlockByHash(ctx context.Context, hash common.Hash, cfg *TraceConfig) ([]map[string]any, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var out []map[string]any
	a.Node.Read(func(nd *node.Node) {
		blk, ok := nd.Chain.BlockByHash(hash)
		if !ok {
			out = []map[string]any{}
			return
		}
		out = a.traceOneBlock(nd, blk, cfg)
	})
	return out, nil
}

// TraceBlockByNumber implements debug_traceBlockByNumber.
func (a *DebugAPI) TraceBlockByNumber(ctx context.Context, number gethrpc.BlockNumber, cfg *TraceConfig) ([]map[string]any, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var out []map[string]any
	a.Node.Read(func(nd *node.Node) {
		n := resolveBlockNumber(nd, number)
		blk, ok := nd.Chain.BlockByNumber(n)
		if !ok {
			out = []map[string]any{}
			return
		}
		out = a.traceOneBlock(nd, blk, cfg)
	})
	return out, nil
}

func (a *DebugAPI) traceOneBlock(nd *node.Node, blk *chain.Block, cfg *TraceConfig) []map[string]any {
	if blk.TxHash == nil {
		return []map[string]any{}
	}
	loc, ok := nd.Chain.TransactionLocation(*blk.TxHash)
	if !ok {
		return []map[string]any{}
	}
	frame := tracer.Render(loc.Trace, tracer.Options{OnlyTopCall: cfg.onlyTopCall(), Resolver: a.Resolver})
	return []map[string]any{
		{"txHash": loc.Tx.Hash(), "result": frame},
	}
}
