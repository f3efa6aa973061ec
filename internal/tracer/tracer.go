// Package tracer renders the callTracer-shaped trace tree debug_trace*
// methods return. The engine already produces a deterministic
// engine.CallFrame as part of every Execute call (the node always
// replays deterministically, so there is no separate "tracing mode"
// to invoke); this package only shapes that tree for the RPC surface
// and applies the onlyTopCall truncation spec §4.5 describes.
package tracer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zksync-go/innode/internal/engine"
)

// NameResolver looks up a human-readable name for a contract address
// or an event topic, e.g. from an external ABI registry. It is an
// optional collaborator: a nil resolver simply yields no names, which
// is the correct behavior when the node hasn't been given any ABIs.
type NameResolver interface {
	ResolveContractName(addr common.Address) (string, bool)
	ResolveEventName(topic common.Hash) (string, bool)
}

// Frame is the JSON-facing call-trace node, matching the
// {from, to, input, output, gas, gasUsed, value, calls, error?,
// revertReason?} shape spec §4.5 specifies.
type Frame struct {
	Type         string         `json:"type"`
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	Input        string         `json:"input"`
	Output       string         `json:"output,omitempty"`
	Gas          string         `json:"gas"`
	GasUsed      string         `json:"gasUsed"`
	Value        string         `json:"value,omitempty"`
	Calls        []*Frame       `json:"calls,omitempty"`
	Error        string         `json:"error,omitempty"`
	RevertReason string         `json:"revertReason,omitempty"`
	Name         string         `json:"-"`
}

// Options configures how a trace tree is rendered.
type Options struct {
	OnlyTopCall bool
	Resolver    NameResolver
}

// Render converts an engine.CallFrame into the RPC-facing Frame tree,
// truncating to depth 1 when OnlyTopCall is set.
func Render(cf *engine.CallFrame, opts Options) *Frame {
	if cf == nil {
		return nil
	}
	f := &Frame{
		Type:         cf.Type,
		From:         cf.From,
		To:           cf.To,
		Input:        hexEncode(cf.Input),
		Output:       hexEncode(cf.Output),
		Gas:          hexUint(cf.Gas),
		GasUsed:      hexUint(cf.GasUsed),
		Error:        cf.Error,
		RevertReason: cf.RevertReason,
	}
	if cf.Value != nil {
		f.Value = hexBig(cf.Value)
	}
	if opts.Resolver != nil {
		if name, ok := opts.Resolver.ResolveContractName(cf.To); ok {
			f.Name = name
		}
	}
	if !opts.OnlyTopCall {
		for _, child := range cf.Calls {
			f.Calls = append(f.Calls, Render(child, opts))
		}
	}
	return f
}

func hexEncode(b []byte) string {
	if len(b) == 0 {
		return "0x"
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2+len(b)*2)
	out[0], out[1] = '0', 'x'
	for i, by := range b {
		out[2+i*2] = hexdigits[by>>4]
		out[3+i*2] = hexdigits[by&0xf]
	}
	return string(out)
}

func hexUint(v uint64) string {
	return "0x" + big.NewInt(0).SetUint64(v).Text(16)
}

func hexBig(v *big.Int) string {
	return "0x" + v.Text(16)
}
