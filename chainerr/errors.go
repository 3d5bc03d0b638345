// Package chainerr defines the error taxonomy shared by the blockchain,
// accounts and mempool packages: a small enum of error codes wrapped
// in a single concrete error type so callers can branch on category
// with errors.As instead of string matching.
package chainerr

import "fmt"

// ErrorCode identifies a specific kind of rule violation.
type ErrorCode int

const (
	// ErrStorageFailure indicates the backing KV store returned an
	// unexpected error. Fatal: callers must abort any open Accounts
	// transaction and stop touching consensus-critical state.
	ErrStorageFailure ErrorCode = iota

	// ErrInvalidBlock covers all stateless and contextual block
	// validation failures (bad size, bad hashes, bad PoW, bad height,
	// bad retarget, failed body application).
	ErrInvalidBlock

	// ErrInvalidTx covers transaction validation failures (bad
	// signature, insufficient balance, nonce mismatch, disallowed
	// self-transfer).
	ErrInvalidTx

	// ErrOrphanBlock indicates a block was buffered because its parent
	// is unknown.
	ErrOrphanBlock

	// ErrTxBusy indicates a caller tried to open a second transaction
	// on an AccountsTree that already has one open.
	ErrTxBusy

	// ErrPolicyViolation covers blocks or transactions that are
	// well-formed but violate a network policy (future timestamp,
	// fee below minimum). The returned error carries this code; the
	// chain reports such a block with the Invalid push result and the
	// mempool rejects such a transaction as Invalid.
	ErrPolicyViolation
)

var errorCodeStrings = map[ErrorCode]string{
	ErrStorageFailure:  "ErrStorageFailure",
	ErrInvalidBlock:    "ErrInvalidBlock",
	ErrInvalidTx:       "ErrInvalidTx",
	ErrOrphanBlock:     "ErrOrphanBlock",
	ErrTxBusy:          "ErrTxBusy",
	ErrPolicyViolation: "ErrPolicyViolation",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// RuleError identifies an error generated by a consensus or policy
// validation rule, carrying the ErrorCode so callers can type-switch
// on category instead of matching error strings.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string {
	return e.Description
}

// New returns a RuleError with the given code and a formatted message.
func New(code ErrorCode, format string, args ...interface{}) RuleError {
	return RuleError{ErrorCode: code, Description: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a RuleError of the given code.
func Is(err error, code ErrorCode) bool {
	re, ok := err.(RuleError)
	if !ok {
		return false
	}
	return re.ErrorCode == code
}
