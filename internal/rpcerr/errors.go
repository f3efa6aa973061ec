// Package rpcerr defines the JSON-RPC error kinds the node can return.
//
// Each kind carries a fixed error code matching the go-ethereum/rpc
// convention: codes implementing the rpc.Error interface are
// marshaled by the rpc.Server into a JSON-RPC error object without
// any further handling in the dispatcher.
package rpcerr

import "fmt"

// Error is a JSON-RPC error with a fixed code, satisfying
// github.com/ethereum/go-ethereum/rpc.Error.
type Error struct {
	code int
	msg  string
}

func (e *Error) Error() string  { return e.msg }
func (e *Error) ErrorCode() int { return e.code }

const (
	codeInvalidParams      = -32602
	codeInvalidTransaction = -32000
	codeInsufficientFunds  = -32000
	codeNonceMismatch      = -32000
	codeGasLimitExceeded   = -32000
	codeExecutionReverted  = -32000
	codeForkUnavailable    = -32603
	codeUnknownSnapshot    = -32000
	codeMethodNotFound     = -32601
	codeInternal           = -32603
)

// InvalidParams wraps a malformed-parameter or out-of-range condition.
func InvalidParams(format string, args ...any) *Error {
	return &Error{code: codeInvalidParams, msg: fmt.Sprintf(format, args...)}
}

// InvalidTransaction wraps envelope decode/signature failures and the
// "Invalid bytecode" family of setCode/store_bytecode errors.
func InvalidTransaction(format string, args ...any) *Error {
	return &Error{code: codeInvalidTransaction, msg: fmt.Sprintf(format, args...)}
}

// InsufficientFunds reports balance < maxFee*gasLimit+value.
func InsufficientFunds(addr fmt.Stringer) *Error {
	return &Error{code: codeInsufficientFunds, msg: fmt.Sprintf("insufficient funds for gas * price + value: address %s", addr)}
}

// NonceMismatch reports a nonce that does not match the expected one.
func NonceMismatch(expected, got uint64) *Error {
	kind := "nonce too low"
	if got > expected {
		kind = "nonce too high"
	}
	return &Error{code: codeNonceMismatch, msg: fmt.Sprintf("%s: expected %d, got %d", kind, expected, got)}
}

// GasLimitExceeded reports a transaction whose gas limit could not
// cover intrinsic gas, or a block gas limit overrun.
func GasLimitExceeded(format string, args ...any) *Error {
	return &Error{code: codeGasLimitExceeded, msg: fmt.Sprintf(format, args...)}
}

// ExecutionReverted reports a status-0 receipt, optionally carrying a
// decoded revert reason string.
func ExecutionReverted(reason string) *Error {
	msg := "execution reverted"
	if reason != "" {
		msg = fmt.Sprintf("execution reverted: %s", reason)
	}
	return &Error{code: codeExecutionReverted, msg: msg}
}

// ForkUnavailable reports a remote lookup failure with no cached value.
func ForkUnavailable(cause error) *Error {
	return &Error{code: codeForkUnavailable, msg: fmt.Sprintf("fork unavailable: %v", cause)}
}

// UnknownSnapshot reports an evm_revert on an id never issued, or one
// already invalidated by an earlier revert.
func UnknownSnapshot(id uint64) *Error {
	return &Error{code: codeUnknownSnapshot, msg: fmt.Sprintf("unknown snapshot id: %d", id)}
}

// MethodNotFound reports an unrouted JSON-RPC method name.
func MethodNotFound(method string) *Error {
	return &Error{code: codeMethodNotFound, msg: fmt.Sprintf("method not found: %s", method)}
}

// Internal wraps an unexpected engine or dispatcher failure. It never
// carries partially-committed state: callers must only construct it
// after rolling back any speculative mutation.
func Internal(format string, args ...any) *Error {
	return &Error{code: codeInternal, msg: fmt.Sprintf(format, args...)}
}
