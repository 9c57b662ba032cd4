/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (the bank facade, the HTTP layer) branch on these with
  errors.Is / errors.As and map them to user-facing responses.

ERROR CATEGORIES:
  1. Validation errors - rejected before any write (bad type, bad sign)
  2. Precondition errors - account missing / closed / frozen
  3. Funds errors - balance floor violations
  4. Store errors - underlying persistence failures
  5. PartialTransferError - a transfer that committed one leg only

USAGE:
  if errors.Is(err, ledger.ErrInsufficientFunds) { ... }

  var partial *ledger.PartialTransferError
  if errors.As(err, &partial) {
      // partial.DebitTxID committed; alert an operator
  }

SEE ALSO:
  - apply.go, transfer.go: Producers of these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransactionType is returned when a transaction type is not
	// in the closed enumeration. Rejected before any write.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidAccountType is returned when an account type is not in
	// the closed enumeration.
	ErrInvalidAccountType = errors.New("invalid account type")

	// ErrInvalidAmountSign is returned when an amount's sign contradicts
	// its transaction type (a negative deposit, a positive withdrawal).
	ErrInvalidAmountSign = errors.New("amount sign does not match transaction type")

	// ErrInsufficientFunds is returned when a debit would take the balance
	// below the account floor (0, or -overdraft_limit).
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountClosed is returned for operations on a closed account.
	ErrAccountClosed = errors.New("account closed")

	// ErrAccountFrozen is returned for operations on a frozen account.
	ErrAccountFrozen = errors.New("account frozen")

	// ErrClientNotFound is returned when a referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrTransactionNotFound is returned when a referenced transaction
	// doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrCardNotFound is returned when a referenced card doesn't exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrLoanNotFound is returned when a referenced loan doesn't exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrSameAccount is returned when a transfer names one account twice.
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrAmountNotPositive is returned when an operation magnitude is <= 0.
	ErrAmountNotPositive = errors.New("amount must be positive")

	// ErrCurrencyMismatch is returned when an amount's currency does not
	// match the account's (or the counterpart account's, for transfers).
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrStore wraps underlying persistence failures. The operation is
	// aborted; retryable once the store recovers.
	ErrStore = errors.New("store error")
)

// StoreError wraps a persistence failure with the operation that hit it.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports exactly how short the account is.
type InsufficientFundsError struct {
	AccountID AccountID
	Available Money
	Requested Money
	Floor     Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on %s: available %s, requested %s (floor %s)",
		e.AccountID, e.Available, e.Requested.Abs(), e.Floor)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// PartialTransferError is returned when a transfer committed its debit leg
// but the credit leg failed. It distinguishes "nothing happened" from
// "debited but not credited" and records whether the compensating reversal
// of the debit stuck. Callers must surface this to an operator; money is
// not silently lost either way because balances are refolded from whatever
// rows actually persisted.
type PartialTransferError struct {
	DebitTxID TransactionID // The committed debit leg
	Reference string        // Shared transfer reference prefix

	Reversed    bool  // True if the compensating credit was written
	ReversalErr error // Set when the reversal itself failed

	Cause error // The credit-leg failure
}

func (e *PartialTransferError) Error() string {
	if e.Reversed {
		return fmt.Sprintf("transfer %s: credit leg failed after debit %s; debit reversed: %v",
			e.Reference, e.DebitTxID, e.Cause)
	}
	return fmt.Sprintf("transfer %s: credit leg failed after debit %s; reversal FAILED (%v): %v",
		e.Reference, e.DebitTxID, e.ReversalErr, e.Cause)
}

func (e *PartialTransferError) Unwrap() error { return e.Cause }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a business-rule rejection, as opposed to an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransactionType) ||
		errors.Is(err, ErrInvalidAccountType) ||
		errors.Is(err, ErrInvalidAmountSign) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountClosed) ||
		errors.Is(err, ErrAccountFrozen) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrAmountNotPositive) ||
		errors.Is(err, ErrCurrencyMismatch)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrCardNotFound) ||
		errors.Is(err, ErrLoanNotFound)
}
