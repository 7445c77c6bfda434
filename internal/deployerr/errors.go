// Package deployerr defines the error taxonomy shared by every pipeline
// step. All of these are fatal to the invoking step: mutating operations
// carry an on-ledger fee cost, so nothing here is retried automatically.
package deployerr

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PersistenceError reports a local storage failure while reading or
// writing a key or state file.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s of %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CorruptKeyError means a key file exists but its bytes do not decode to
// a valid keypair.
type CorruptKeyError struct {
	Path   string
	Reason string
}

func (e *CorruptKeyError) Error() string {
	return fmt.Sprintf("corrupt key file %s: %s", e.Path, e.Reason)
}

// MalformedStateError means the deployment record on disk is unreadable.
type MalformedStateError struct {
	Path string
	Err  error
}

func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("malformed deployment record %s: %v", e.Path, e.Err)
}

func (e *MalformedStateError) Unwrap() error { return e.Err }

// InsufficientFundsError is the precondition gate failure, for native
// lamports or asset base units alike.
type InsufficientFundsError struct {
	Address  string
	Observed uint64
	Required uint64
	Asset    string // empty for native balance
}

func (e *InsufficientFundsError) Error() string {
	unit := "lamports"
	if e.Asset != "" {
		unit = e.Asset + " base units"
	}
	return fmt.Sprintf("insufficient funds on %s: observed %d %s, required %d",
		e.Address, e.Observed, unit, e.Required)
}

// OnChainRejectionError means an external program refused a mutating
// request. Surfaced to the operator, never retried.
type OnChainRejectionError struct {
	Op  string
	Err error
}

func (e *OnChainRejectionError) Error() string {
	return fmt.Sprintf("on-chain rejection during %s: %v", e.Op, e.Err)
}

func (e *OnChainRejectionError) Unwrap() error { return e.Err }

// InvariantViolationError means the on-chain result disagrees with what
// was requested. Defensive, always fatal.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

// ConfirmationTimeoutError means a transaction was submitted but its
// confirmation was not observed within the bounded wait. The outcome is
// ambiguous: the operator must re-check on-chain state (the verify step
// is read-only and safe) before deciding whether to resubmit.
type ConfirmationTimeoutError struct {
	Signature string
	Waited    time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("confirmation not observed within %s for transaction %s; "+
		"re-check on-chain state before re-running, the transfer may still land",
		e.Waited, e.Signature)
}

// FormatLamports renders a lamport amount as SOL for operator-facing
// messages.
func FormatLamports(lamports uint64) string {
	sol := decimal.NewFromUint64(lamports).Div(decimal.NewFromInt(1_000_000_000))
	return sol.String() + " SOL"
}
