package rpcapi

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Quantity decodes a JSON-RPC numeric parameter that clients send
// either as a hex quantity ("0x64") or a bare JSON number (100).
// Tooling is inconsistent about which encoding it uses for the
// evm_*/hardhat_* control methods, so those accept both.
type Quantity uint64

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var h hexutil.Uint64
		if err := h.UnmarshalJSON(data); err != nil {
			return err
		}
		*q = Quantity(h)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*q = Quantity(n)
	return nil
}

// MarshalJSON renders the quantity in the canonical hex encoding.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Uint64(q))
}
