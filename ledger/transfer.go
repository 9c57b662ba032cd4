/*
transfer.go - Transfer Orchestrator

PURPOSE:
  Composes a paired debit and credit into one logical transfer. A transfer
  is two transaction rows - one per account, opposite signs - linked by a
  shared reference prefix (same stamp, -D and -C suffixes), not by a
  foreign key.

ALGORITHM:
  1. Validate: amount > 0, distinct accounts, both transactable, matching
     currencies
  2. Funds check on the source via a fresh fold (never the cached balance)
  3. Write the debit leg and the credit leg
  4. Recompute both accounts' balances

ATOMICITY:
  When the store supports WithTx, both legs and both recomputes commit as
  one unit and a failure leaves nothing behind.

  With a plain row store there is a window between the legs. If the credit
  leg fails after the debit committed, the orchestrator writes a
  compensating reversal of the debit and returns *PartialTransferError
  telling the caller exactly what state the ledger is in: debit reversed,
  or debit standing with the reversal itself failed (operator attention
  required). Recompute is attempted for every account whose rows changed,
  even on the failure paths, so stored balances always match persisted
  rows.

LOCKING:
  Both account locks are held for the whole operation, acquired in ID
  order (see locks.go), so concurrent transfers over the same accounts
  serialize and opposite-direction transfers cannot deadlock.

SEE ALSO:
  - apply.go: Single-leg validation building blocks reused here
  - errors.go: PartialTransferError contract
*/
package ledger

import (
	"context"
	"errors"
	"time"
)

// Orchestrator coordinates two-account transfers.
type Orchestrator struct {
	Store Store
	Locks *AccountLocks

	Now func() time.Time
}

func NewOrchestrator(store Store, locks *AccountLocks) *Orchestrator {
	return &Orchestrator{Store: store, Locks: locks, Now: time.Now}
}

// TransferResult identifies both committed legs of a successful transfer.
type TransferResult struct {
	DebitTxID  TransactionID
	CreditTxID TransactionID
	Reference  string
	Amount     Money
}

// Transfer moves amount (a positive magnitude) from one account to another.
func (o *Orchestrator) Transfer(ctx context.Context, fromID, toID AccountID, amount Money, description string) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}
	if fromID == toID {
		return nil, ErrSameAccount
	}

	unlock := o.Locks.LockPair(fromID, toID)
	defer unlock()

	from, err := loadTransactableAccount(ctx, o.Store, fromID)
	if err != nil {
		return nil, err
	}
	to, err := loadTransactableAccount(ctx, o.Store, toID)
	if err != nil {
		return nil, err
	}
	if from.Currency != to.Currency {
		return nil, ErrCurrencyMismatch
	}
	if amount.Currency != "" && amount.Currency != from.Currency {
		return nil, ErrCurrencyMismatch
	}
	amount.Currency = from.Currency

	// Sufficiency is judged on the current transaction set. Nothing has
	// been written yet; an insufficient source aborts with no side effects.
	if err := checkFunds(ctx, o.Store, from, amount.Neg()); err != nil {
		return nil, err
	}

	now := o.now()
	ref := NewReference(TxTransfer, now)
	debit, credit := transferLegs(from, to, amount, description, ref, now)

	if ts, ok := o.Store.(TxStore); ok {
		err := ts.WithTx(ctx, func(s Store) error {
			if err := s.InsertTransaction(ctx, debit); err != nil {
				return StoreError("insert debit leg", err)
			}
			if err := s.InsertTransaction(ctx, credit); err != nil {
				return StoreError("insert credit leg", err)
			}
			if _, err := recomputeAccount(ctx, s, fromID, now); err != nil {
				return err
			}
			if _, err := recomputeAccount(ctx, s, toID, now); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &TransferResult{DebitTxID: debit.ID, CreditTxID: credit.ID, Reference: ref, Amount: amount}, nil
	}

	return o.transferSaga(ctx, from, debit, credit, ref, amount, now)
}

// transferSaga performs the two legs as independent writes with an explicit
// compensating action for the window between them.
func (o *Orchestrator) transferSaga(ctx context.Context, from *Account, debit, credit Transaction, ref string, amount Money, now time.Time) (*TransferResult, error) {
	if err := o.Store.InsertTransaction(ctx, debit); err != nil {
		// Nothing committed.
		return nil, StoreError("insert debit leg", err)
	}

	if err := o.Store.InsertTransaction(ctx, credit); err != nil {
		perr := &PartialTransferError{
			DebitTxID: debit.ID,
			Reference: ref,
			Cause:     StoreError("insert credit leg", err),
		}

		// Compensate: reverse the committed debit.
		reversal := Transaction{
			ID:               NewTransactionID(),
			AccountID:        debit.AccountID,
			Type:             TxTransfer,
			Amount:           amount,
			Description:      "Reversal of failed transfer " + ref,
			Status:           TxStatusCompleted,
			Reference:        ref + "-R",
			RecipientAccount: debit.RecipientAccount,
			SenderAccount:    debit.SenderAccount,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if rerr := o.Store.InsertTransaction(ctx, reversal); rerr != nil {
			perr.ReversalErr = rerr
		} else {
			perr.Reversed = true
		}

		// The debit (and possibly the reversal) persisted; refold so the
		// stored balance matches whatever rows exist.
		recomputeAccount(ctx, o.Store, debit.AccountID, now) //nolint:errcheck
		return nil, perr
	}

	// Both legs committed. A recompute failure on one account must not
	// skip the other: both refolds run before any error is reported.
	_, debitErr := recomputeAccount(ctx, o.Store, debit.AccountID, now)
	_, creditErr := recomputeAccount(ctx, o.Store, credit.AccountID, now)
	if err := errors.Join(debitErr, creditErr); err != nil {
		return nil, err
	}
	return &TransferResult{DebitTxID: debit.ID, CreditTxID: credit.ID, Reference: ref, Amount: amount}, nil
}

// transferLegs builds the paired rows. Both carry both account numbers so
// either side's statement names the counterpart.
func transferLegs(from, to *Account, amount Money, description, ref string, now time.Time) (debit, credit Transaction) {
	debit = Transaction{
		ID:               NewTransactionID(),
		AccountID:        from.ID,
		Type:             TxTransfer,
		Amount:           amount.Neg(),
		Description:      "Transfer to " + to.Number + ": " + description,
		Status:           TxStatusCompleted,
		Reference:        ref + "-D",
		RecipientAccount: to.Number,
		SenderAccount:    from.Number,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	credit = Transaction{
		ID:               NewTransactionID(),
		AccountID:        to.ID,
		Type:             TxTransfer,
		Amount:           amount,
		Description:      "Transfer from " + from.Number + ": " + description,
		Status:           TxStatusCompleted,
		Reference:        ref + "-C",
		RecipientAccount: to.Number,
		SenderAccount:    from.Number,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return debit, credit
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
