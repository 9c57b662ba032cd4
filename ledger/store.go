/*
store.go - Persistence interfaces for ledger rows

PURPOSE:
  Defines the interface between the engine and the row store. The backing
  service is a plain row-oriented store (per-entity list/get/insert/update/
  delete) with no server-side triggers; every consistency guarantee in this
  system is enforced on this side of the interface.

KEY INTERFACES:
  AccountStore / TransactionStore / ClientStore: Per-entity row CRUD
  Store:   The composed row store the engine operates on
  TxStore: Store plus WithTx for atomic multi-row writes

BALANCE WRITES:
  UpdateAccountBalance exists on AccountStore because the balance column
  has to be persisted somewhere, but the ONLY caller allowed to use it is
  the Maintainer (maintain.go). Nothing else in this module - and nothing
  outside it - writes that column directly.

ATOMICITY:
  WithTx gives all-or-nothing semantics where the backend supports it
  (database transaction in SQLite, snapshot/rollback in the memory store).
  The transfer orchestrator prefers WithTx and falls back to an explicit
  compensating-action saga when the store is a plain Store.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - ledger/store:  In-memory store for tests and dev

SEE ALSO:
  - maintain.go: The single gate for UpdateAccountBalance
  - transfer.go: WithTx vs saga selection
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// PER-ENTITY ROW STORES
// =============================================================================

type AccountStore interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*Account, error)
	InsertAccount(ctx context.Context, a Account) error
	UpdateAccount(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, id AccountID) error

	// UpdateAccountBalance persists a recomputed balance and stamps
	// updated_at. Maintainer use only; see package invariant above.
	UpdateAccountBalance(ctx context.Context, id AccountID, balance Money, updatedAt time.Time) error
}

type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]Transaction, error)

	// TransactionsByAccount returns the account's rows ordered by
	// created_at ascending (insertion order for equal stamps).
	TransactionsByAccount(ctx context.Context, accountID AccountID) ([]Transaction, error)

	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	InsertTransaction(ctx context.Context, tx Transaction) error
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error
}

type ClientStore interface {
	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id ClientID) (*Client, error)
	InsertClient(ctx context.Context, c Client) error
	UpdateClient(ctx context.Context, c Client) error
	DeleteClient(ctx context.Context, id ClientID) error
}

type CardStore interface {
	ListCards(ctx context.Context) ([]Card, error)
	CardsByClient(ctx context.Context, clientID ClientID) ([]Card, error)
	InsertCard(ctx context.Context, c Card) error
	UpdateCard(ctx context.Context, c Card) error
	DeleteCard(ctx context.Context, id CardID) error
}

type LoanStore interface {
	ListLoans(ctx context.Context) ([]Loan, error)
	LoansByClient(ctx context.Context, clientID ClientID) ([]Loan, error)
	InsertLoan(ctx context.Context, l Loan) error
	UpdateLoan(ctx context.Context, l Loan) error
	DeleteLoan(ctx context.Context, id LoanID) error
}

// =============================================================================
// COMPOSED STORE
// =============================================================================

// Store is the row store the engine operates on: per-entity CRUD over the
// five persisted entities.
type Store interface {
	AccountStore
	TransactionStore
	ClientStore
	CardStore
	LoanStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// withTx runs fn transactionally when s supports it and directly otherwise.
// Engine code funnels multi-row writes through here so a plain Store still
// works (with weaker guarantees handled by the callers' compensation logic).
func withTx(ctx context.Context, s Store, fn func(Store) error) (atomic bool, err error) {
	if ts, ok := s.(TxStore); ok {
		return true, ts.WithTx(ctx, fn)
	}
	return false, fn(s)
}
