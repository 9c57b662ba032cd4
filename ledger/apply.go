/*
apply.go - Transaction Applier

PURPOSE:
  Validates and records a single-account money movement, then recomputes
  the account's stored balance before returning. Callers can never observe
  a recorded transaction whose account balance does not reflect it.

VALIDATION ORDER (nothing is written until all pass):
  1. Transaction type in the closed enum
  2. Amount non-zero, sign matching the type convention
     (deposit => positive; withdrawal/payment/fee => negative;
      transfer legs carry either sign)
  3. Account exists, is not closed/frozen, currency matches
  4. For debits: projected post-balance stays at or above the floor
     (-overdraft_limit, or 0 when the account has none)

FUNDS CHECK:
  The projected balance is a fresh fold over the store's CURRENT
  transaction set, never the cached Balance field or the projection cache.
  Combined with the per-account lock held for the whole operation, two
  concurrent debits cannot both pass the check on the same funds.

ATOMICITY:
  Insert + recompute run inside WithTx when the store supports it. With a
  plain Store, a recompute failure after a successful insert is surfaced,
  and the row is already durable - the caller retries the recompute, it
  does not lose the transaction.

SEE ALSO:
  - transfer.go: Composes two applications into a transfer
  - maintain.go: The recompute called here
*/
package ledger

import (
	"context"
	"time"
)

// Applier validates and records single-account money movements.
type Applier struct {
	Store Store
	Locks *AccountLocks

	// Now is the clock for timestamps and references. Defaults to time.Now.
	Now func() time.Time
}

func NewApplier(store Store, locks *AccountLocks) *Applier {
	return &Applier{Store: store, Locks: locks, Now: time.Now}
}

// ApplyInput describes a single-account movement.
type ApplyInput struct {
	AccountID   AccountID
	Type        TransactionType
	Amount      Money // Signed: credit-positive, debit-negative
	Description string

	// Reference overrides the generated reference number (transfer legs
	// pass a shared prefix). Empty means generate one.
	Reference string

	// Counterpart account numbers, set on transfer legs.
	RecipientAccount string
	SenderAccount    string
}

// Apply validates the movement, inserts the transaction row with status
// completed, and synchronously recomputes the account's balance.
func (ap *Applier) Apply(ctx context.Context, in ApplyInput) (*Transaction, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	unlock := ap.Locks.Lock(in.AccountID)
	defer unlock()

	account, err := loadTransactableAccount(ctx, ap.Store, in.AccountID)
	if err != nil {
		return nil, err
	}
	if in.Amount.Currency != "" && in.Amount.Currency != account.Currency {
		return nil, ErrCurrencyMismatch
	}

	if in.Amount.IsNegative() {
		if err := checkFunds(ctx, ap.Store, account, in.Amount); err != nil {
			return nil, err
		}
	}

	now := ap.now()
	tx := ap.buildTransaction(in, account, now)

	_, err = withTx(ctx, ap.Store, func(s Store) error {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			return StoreError("insert transaction", err)
		}
		if _, err := recomputeAccount(ctx, s, in.AccountID, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (ap *Applier) buildTransaction(in ApplyInput, account *Account, now time.Time) Transaction {
	ref := in.Reference
	if ref == "" {
		ref = NewReference(in.Type, now)
	}
	amount := in.Amount
	if amount.Currency == "" {
		amount.Currency = account.Currency
	}
	return Transaction{
		ID:               NewTransactionID(),
		AccountID:        in.AccountID,
		Type:             in.Type,
		Amount:           amount,
		Description:      in.Description,
		Status:           TxStatusCompleted,
		Reference:        ref,
		RecipientAccount: in.RecipientAccount,
		SenderAccount:    in.SenderAccount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (ap *Applier) now() time.Time {
	if ap.Now != nil {
		return ap.Now()
	}
	return time.Now()
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateInput(in ApplyInput) error {
	if !ValidTransactionType(in.Type) {
		return ErrInvalidTransactionType
	}
	if in.Amount.IsZero() {
		return ErrAmountNotPositive
	}
	switch in.Type {
	case TxDeposit:
		if in.Amount.IsNegative() {
			return ErrInvalidAmountSign
		}
	case TxWithdrawal, TxPayment, TxFee:
		if in.Amount.IsPositive() {
			return ErrInvalidAmountSign
		}
	case TxTransfer:
		// Either sign; direction decided by the orchestrator.
	}
	return nil
}

// loadTransactableAccount fetches the account and rejects operations on
// missing, closed, or frozen accounts.
func loadTransactableAccount(ctx context.Context, s Store, id AccountID) (*Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, StoreError("get account", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	switch account.Status {
	case AccountClosed:
		return nil, ErrAccountClosed
	case AccountFrozen:
		return nil, ErrAccountFrozen
	}
	return account, nil
}

// checkFunds verifies that applying the (negative) amount keeps the balance
// at or above the account floor. The balance is a fresh fold over the
// store's current rows; the cached Balance field is never consulted here.
func checkFunds(ctx context.Context, s Store, account *Account, amount Money) error {
	txs, err := s.TransactionsByAccount(ctx, account.ID)
	if err != nil {
		return StoreError("load transactions", err)
	}
	current := ComputeBalance(account.ID, txs)
	projected := current.Add(amount.Amount)
	floor := account.Floor()
	if projected.LessThan(floor) {
		return &InsufficientFundsError{
			AccountID: account.ID,
			Available: NewMoney(current.Sub(floor), account.Currency),
			Requested: amount,
			Floor:     NewMoney(floor, account.Currency),
		}
	}
	return nil
}
