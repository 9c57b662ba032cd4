/*
maintain.go - Consistency Maintainer

PURPOSE:
  Recomputes stored account balances from transaction history. This is the
  single gate through which the balance column may be written: the Applier
  and the Orchestrator call into here after every insert, and the bank
  facade calls in after transaction edits and deletes. There is no public
  "set balance" operation anywhere in the module.

IDEMPOTENCY:
  Recompute is a pure refold persisted: calling it twice with no
  intervening transaction changes stores the same value twice. That makes
  it safe to run as a repair/audit job (RecomputeAll) on a schedule.

FAILURE POLICY:
  Recompute is attempted for every account whose transactions actually
  changed, even when the surrounding operation failed, so the stored
  balance never diverges from whatever rows persisted.

SEE ALSO:
  - balance.go: The fold itself
  - api/scheduler.go: Nightly RecomputeAll audit run
*/
package ledger

import (
	"context"
	"time"
)

// Maintainer recomputes stored balances from transaction history.
type Maintainer struct {
	Store Store

	// Now is the clock used for updated_at stamps. Defaults to time.Now.
	Now func() time.Time
}

func NewMaintainer(store Store) *Maintainer {
	return &Maintainer{Store: store, Now: time.Now}
}

// Recompute refolds accountID's transaction history and persists the result
// as the account's stored balance, stamping updated_at. Returns the new
// balance. Stateless and idempotent.
func (m *Maintainer) Recompute(ctx context.Context, accountID AccountID) (Money, error) {
	return recomputeAccount(ctx, m.Store, accountID, m.now())
}

// RecomputeAll refolds every known account. Used for bulk repair and the
// scheduled audit. The first store failure aborts the sweep; accounts
// already processed keep their refreshed balances.
func (m *Maintainer) RecomputeAll(ctx context.Context) error {
	accounts, err := m.Store.ListAccounts(ctx)
	if err != nil {
		return StoreError("list accounts", err)
	}
	for _, a := range accounts {
		if _, err := recomputeAccount(ctx, m.Store, a.ID, m.now()); err != nil {
			return err
		}
	}
	return nil
}

func (m *Maintainer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// recomputeAccount is the shared implementation. The Applier and the
// Orchestrator call it with their transactional store view so that the
// inserted row and the recomputed balance commit together.
func recomputeAccount(ctx context.Context, s Store, accountID AccountID, now time.Time) (Money, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return Money{}, StoreError("get account", err)
	}
	if account == nil {
		return Money{}, ErrAccountNotFound
	}

	txs, err := s.TransactionsByAccount(ctx, accountID)
	if err != nil {
		return Money{}, StoreError("load transactions", err)
	}

	balance := NewMoney(ComputeBalance(accountID, txs), account.Currency)
	if err := s.UpdateAccountBalance(ctx, accountID, balance, now); err != nil {
		return Money{}, StoreError("update balance", err)
	}
	return balance, nil
}
