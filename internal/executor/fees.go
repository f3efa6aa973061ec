package executor

import "math/big"

// FixedGasPrice is the node's policy constant for both the base fee
// and the effective gas price charged on every transaction (spec
// §6, "gas price fixed at 250 000 000").
const FixedGasPrice uint64 = 250_000_000

// DefaultGasPerPubdataLimit is the policy constant zks_estimateFee
// reports alongside the computed gas limit.
const DefaultGasPerPubdataLimit uint64 = 50_000

// MaxPriorityFeePerGas is the fixed priority fee policy constant.
const MaxPriorityFeePerGas uint64 = 0

// FixedBaseFee returns the node's constant base fee as a *big.Int,
// a fresh value each call so callers can mutate it freely.
func FixedBaseFee() *big.Int { return new(big.Int).SetUint64(FixedGasPrice) }

// FeeEstimate is the zks_estimateFee response shape.
type FeeEstimate struct {
	GasLimit             uint64
	GasPerPubdataLimit   uint64
	MaxFeePerGas         uint64
	MaxPriorityFeePerGas uint64
}
