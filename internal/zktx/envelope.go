// Package zktx decodes and hashes the zkSync Era EIP-712 transaction
// envelope (transaction type 0x71): the variant that carries a
// gas-per-pubdata limit, optional paymaster parameters, and an
// explicit list of factory-dependency bytecodes alongside the usual
// legacy/EIP-1559/EIP-2930 fields go-ethereum's core/types already
// understands.
package zktx

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/zksync-go/innode/internal/rpcerr"
)

// EnvelopeType is the EIP-2718 transaction type byte zkSync Era
// reserves for its EIP-712 envelope.
const EnvelopeType = 0x71

// PaymasterParams carries the optional paymaster contract and its
// calldata, present only on EIP-712 envelopes.
type PaymasterParams struct {
	Paymaster common.Address
	Input     []byte
}

// Envelope is the decoded zkSync EIP-712 transaction, a superset of
// what go-ethereum's types.Transaction already models for the
// legacy/1559/2930 shapes.
type Envelope struct {
	ChainID            *big.Int
	Nonce              uint64
	GasTipCap          *big.Int
	GasFeeCap          *big.Int
	Gas                uint64
	To                 *common.Address
	Value              *big.Int
	Data               []byte
	From               common.Address
	GasPerPubdataLimit *big.Int
	FactoryDeps        [][]byte
	Paymaster          *PaymasterParams
	Signature          []byte
}

// rlpFields mirrors the order zkSync Era encodes an EIP-712 transaction
// for its signing hash: a flat RLP list with the factory deps as a
// nested list of byte strings and the paymaster address and input as
// two plain fields.
type rlpFields struct {
	Nonce              *big.Int
	GasPrice           *big.Int
	GasLimit           *big.Int
	To                 common.Address
	Value              *big.Int
	Data               []byte
	ChainID1           *big.Int
	EmptyA             []byte
	EmptyB             []byte
	ChainID2           *big.Int
	From               common.Address
	GasPerPubdataLimit *big.Int
	FactoryDeps        [][]byte
	PaymasterAddress   common.Address
	PaymasterInput     []byte
	Signature          []byte
}

// Decode parses a type-0x71 EIP-2718 envelope. Any other leading byte
// is rejected: callers should fall back to go-ethereum's
// types.Transaction decoding for the standard shapes.
func Decode(raw []byte) (*Envelope, error) {
	if len(raw) == 0 || raw[0] != EnvelopeType {
		return nil, rpcerr.InvalidTransaction("not a zkSync EIP-712 envelope")
	}
	var f rlpFields
	if err := rlp.DecodeBytes(raw[1:], &f); err != nil {
		return nil, rpcerr.InvalidTransaction(fmt.Sprintf("malformed zkSync transaction envelope: %v", err))
	}
	env := &Envelope{
		ChainID:            f.ChainID2,
		Nonce:              f.Nonce.Uint64(),
		GasFeeCap:          f.GasPrice,
		GasTipCap:          f.GasPrice,
		Gas:                f.GasLimit.Uint64(),
		Value:              f.Value,
		Data:               f.Data,
		From:               f.From,
		GasPerPubdataLimit: f.GasPerPubdataLimit,
		FactoryDeps:        f.FactoryDeps,
		Signature:          f.Signature,
	}
	if (f.To != common.Address{}) {
		to := f.To
		env.To = &to
	}
	if (f.PaymasterAddress != common.Address{}) {
		env.Paymaster = &PaymasterParams{Paymaster: f.PaymasterAddress, Input: f.PaymasterInput}
	}
	return env, nil
}

// toRLPFields builds the wire field list shared by SigningHash (sig
// left zero) and Encode (sig populated).
func (e *Envelope) toRLPFields(sig []byte) rlpFields {
	f := rlpFields{
		Nonce:              new(big.Int).SetUint64(e.Nonce),
		GasPrice:           e.GasFeeCap,
		GasLimit:           new(big.Int).SetUint64(e.Gas),
		Value:              e.Value,
		Data:               e.Data,
		ChainID1:           e.ChainID,
		ChainID2:           e.ChainID,
		From:               e.From,
		GasPerPubdataLimit: e.GasPerPubdataLimit,
		FactoryDeps:        e.FactoryDeps,
		Signature:          sig,
	}
	if e.To != nil {
		f.To = *e.To
	}
	if e.Paymaster != nil {
		f.PaymasterAddress = e.Paymaster.Paymaster
		f.PaymasterInput = e.Paymaster.Input
	}
	return f
}

// SigningHash computes the EIP-712-style hash zkSync Era signs over:
// keccak256 of the RLP-encoded field list with the signature fields
// zeroed, domain-separated by the envelope type byte, matching the
// pattern go-ethereum's own typed-transaction signers use (hash the
// unsigned payload, recover against it).
func (e *Envelope) SigningHash() common.Hash {
	f := e.toRLPFields(nil)
	var buf bytes.Buffer
	buf.WriteByte(EnvelopeType)
	if err := rlp.Encode(&buf, &f); err != nil {
		// f's fields are all concrete, non-nil-pointer-free values
		// constructed above; encoding cannot fail.
		panic(fmt.Sprintf("zktx: unexpected rlp encode failure: %v", err))
	}
	return crypto.Keccak256Hash(buf.Bytes())
}

// Encode renders the full type-0x71 envelope (including sig) in the
// same wire shape Decode parses, so a signed Envelope can round-trip
// through sendRawTransaction the way a standard envelope does via
// types.Transaction.MarshalBinary.
func (e *Envelope) Encode(sig []byte) []byte {
	f := e.toRLPFields(sig)
	var buf bytes.Buffer
	buf.WriteByte(EnvelopeType)
	if err := rlp.Encode(&buf, &f); err != nil {
		panic(fmt.Sprintf("zktx: unexpected rlp encode failure: %v", err))
	}
	return buf.Bytes()
}

// RecoverSender recovers the address that produced sig over the
// envelope's signing hash, using the same secp256k1 recovery
// go-ethereum's signers use.
func RecoverSender(env *Envelope, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, rpcerr.InvalidTransaction("invalid signature length")
	}
	pub, err := crypto.SigToPub(env.SigningHash().Bytes(), sig)
	if err != nil {
		return common.Address{}, rpcerr.InvalidTransaction(fmt.Sprintf("signature recovery failed: %v", err))
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// AsStandardTransaction builds a *types.Transaction carrying the
// fields go-ethereum's RPC marshalling code already knows how to
// render (chain ID, nonce, gas, to, value, data); the zkSync-specific
// fields (gas-per-pubdata, factory deps, paymaster) are not
// representable in that type and must be carried alongside it by
// callers that need them.
func (e *Envelope) AsStandardTransaction() *types.Transaction {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   e.ChainID,
		Nonce:     e.Nonce,
		GasTipCap: e.GasTipCap,
		GasFeeCap: e.GasFeeCap,
		Gas:       e.Gas,
		To:        e.To,
		Value:     e.Value,
		Data:      e.Data,
	})
}
