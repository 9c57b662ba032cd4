/*
projection.go - In-memory projection cache

PURPOSE:
  Holds the latest fetched snapshot of clients, accounts, and transactions
  and answers derived queries over it: accounts per client, transactions
  per account, running balances, lookups by ID. Queries are pure filters
  over the cached collections - no I/O.

STALENESS CONTRACT:
  The cache must be refreshed after any write that could have changed the
  underlying rows. Staleness between a write and the refresh is tolerated
  for display, but the cache is NEVER consulted for a write decision: the
  Applier and the Orchestrator re-read from the store before committing.

OWNERSHIP:
  A projection belongs to the process instance that holds it. There is no
  cross-instance invalidation; each caller refreshes its own.

SEE ALSO:
  - apply.go: Why write decisions bypass this cache
  - bank/service.go: Refreshes after every mutating operation
*/
package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Projection caches the last-fetched row collections and derives views.
type Projection struct {
	Store Store

	mu           sync.RWMutex
	clients      []Client
	accounts     []Account
	transactions []Transaction
}

func NewProjection(store Store) *Projection {
	return &Projection{Store: store}
}

// Refresh re-fetches all collections from the store, replacing the cached
// snapshot wholesale. The three lists are loaded before the swap so a
// failed load leaves the previous consistent snapshot in place.
func (p *Projection) Refresh(ctx context.Context) error {
	clients, err := p.Store.ListClients(ctx)
	if err != nil {
		return StoreError("list clients", err)
	}
	accounts, err := p.Store.ListAccounts(ctx)
	if err != nil {
		return StoreError("list accounts", err)
	}
	transactions, err := p.Store.ListTransactions(ctx)
	if err != nil {
		return StoreError("list transactions", err)
	}

	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.Before(transactions[j].CreatedAt)
	})

	p.mu.Lock()
	p.clients = clients
	p.accounts = accounts
	p.transactions = transactions
	p.mu.Unlock()
	return nil
}

// =============================================================================
// DERIVED QUERIES - Pure lookups over the cached snapshot
// =============================================================================

func (p *Projection) Clients() []Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Client(nil), p.clients...)
}

func (p *Projection) Accounts() []Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Account(nil), p.accounts...)
}

func (p *Projection) Transactions() []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Transaction(nil), p.transactions...)
}

func (p *Projection) ClientByID(id ClientID) *Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := range p.clients {
		if p.clients[i].ID == id {
			c := p.clients[i]
			return &c
		}
	}
	return nil
}

func (p *Projection) AccountByID(id AccountID) *Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := range p.accounts {
		if p.accounts[i].ID == id {
			a := p.accounts[i]
			return &a
		}
	}
	return nil
}

// AccountsByClient returns the client's accounts in snapshot order.
func (p *Projection) AccountsByClient(clientID ClientID) []Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Account
	for _, a := range p.accounts {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out
}

// TransactionsByAccount returns the account's transactions ordered by
// creation time ascending.
func (p *Projection) TransactionsByAccount(accountID AccountID) []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Transaction
	for _, tx := range p.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out
}

// ClientTransactions returns all transactions across the client's accounts.
func (p *Projection) ClientTransactions(clientID ClientID) []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make(map[AccountID]bool)
	for _, a := range p.accounts {
		if a.ClientID == clientID {
			ids[a.ID] = true
		}
	}
	var out []Transaction
	for _, tx := range p.transactions {
		if ids[tx.AccountID] {
			out = append(out, tx)
		}
	}
	return out
}

// BalanceOf folds the cached transactions for an account. Display value
// only; write paths fold over the store directly.
func (p *Projection) BalanceOf(accountID AccountID) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ComputeBalance(accountID, p.transactions)
}

// RunningBalanceAsOf returns the balance after the given transaction in
// the ordered history, i.e. the fold truncated at that row.
func (p *Projection) RunningBalanceAsOf(accountID AccountID, upTo TransactionID) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return BalanceAsOf(accountID, p.transactions, upTo)
}
