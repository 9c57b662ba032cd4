// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meridian/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	clients      map[ledger.ClientID]ledger.Client
	accounts     map[ledger.AccountID]ledger.Account
	transactions map[ledger.TransactionID]ledger.Transaction
	cards        map[ledger.CardID]ledger.Card
	loans        map[ledger.LoanID]ledger.Loan

	// Insertion counter preserves ordering for rows created in the same
	// clock tick (tests use fixed clocks).
	seq     uint64
	txOrder map[ledger.TransactionID]uint64
}

func NewMemory() *Memory {
	return &Memory{
		clients:      make(map[ledger.ClientID]ledger.Client),
		accounts:     make(map[ledger.AccountID]ledger.Account),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		cards:        make(map[ledger.CardID]ledger.Card),
		loans:        make(map[ledger.LoanID]ledger.Loan),
		txOrder:      make(map[ledger.TransactionID]uint64),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) GetAccountByNumber(_ context.Context, number string) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Number == number {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (m *Memory) InsertAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) UpdateAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return ledger.ErrAccountNotFound
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) DeleteAccount(_ context.Context, id ledger.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

func (m *Memory) UpdateAccountBalance(_ context.Context, id ledger.AccountID, balance ledger.Money, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.Balance = balance
	a.UpdatedAt = updatedAt
	m.accounts[id] = a
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) ListTransactions(_ context.Context) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTransactionsLocked(func(ledger.Transaction) bool { return true }), nil
}

func (m *Memory) TransactionsByAccount(_ context.Context, accountID ledger.AccountID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTransactionsLocked(func(tx ledger.Transaction) bool {
		return tx.AccountID == accountID
	}), nil
}

func (m *Memory) sortedTransactionsLocked(keep func(ledger.Transaction) bool) []ledger.Transaction {
	var out []ledger.Transaction
	for _, tx := range m.transactions {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return m.txOrder[out[i].ID] < m.txOrder[out[j].ID]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (m *Memory) InsertTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.transactions[tx.ID] = tx
	m.txOrder[tx.ID] = m.seq
	return nil
}

func (m *Memory) UpdateTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[tx.ID]; !ok {
		return ledger.ErrTransactionNotFound
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transactions, id)
	delete(m.txOrder, id)
	return nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (m *Memory) ListClients(_ context.Context) ([]ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetClient(_ context.Context, id ledger.ClientID) (*ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) InsertClient(_ context.Context, c ledger.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) UpdateClient(_ context.Context, c ledger.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return ledger.ErrClientNotFound
	}
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) DeleteClient(_ context.Context, id ledger.ClientID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
	return nil
}

// =============================================================================
// CARDS
// =============================================================================

func (m *Memory) ListCards(_ context.Context) ([]ledger.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CardsByClient(_ context.Context, clientID ledger.ClientID) ([]ledger.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Card
	for _, c := range m.cards {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertCard(_ context.Context, c ledger.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = c
	return nil
}

func (m *Memory) UpdateCard(_ context.Context, c ledger.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = c
	return nil
}

func (m *Memory) DeleteCard(_ context.Context, id ledger.CardID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cards, id)
	return nil
}

// =============================================================================
// LOANS
// =============================================================================

func (m *Memory) ListLoans(_ context.Context) ([]ledger.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Loan, 0, len(m.loans))
	for _, l := range m.loans {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) LoansByClient(_ context.Context, clientID ledger.ClientID) ([]ledger.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Loan
	for _, l := range m.loans {
		if l.ClientID == clientID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertLoan(_ context.Context, l ledger.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = l
	return nil
}

func (m *Memory) UpdateLoan(_ context.Context, l ledger.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = l
	return nil
}

func (m *Memory) DeleteLoan(_ context.Context, id ledger.LoanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loans, id)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	clients      map[ledger.ClientID]ledger.Client
	accounts     map[ledger.AccountID]ledger.Account
	transactions map[ledger.TransactionID]ledger.Transaction
	cards        map[ledger.CardID]ledger.Card
	loans        map[ledger.LoanID]ledger.Loan
	seq          uint64
	txOrder      map[ledger.TransactionID]uint64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	s := memorySnapshot{
		clients:      make(map[ledger.ClientID]ledger.Client, len(tm.clients)),
		accounts:     make(map[ledger.AccountID]ledger.Account, len(tm.accounts)),
		transactions: make(map[ledger.TransactionID]ledger.Transaction, len(tm.transactions)),
		cards:        make(map[ledger.CardID]ledger.Card, len(tm.cards)),
		loans:        make(map[ledger.LoanID]ledger.Loan, len(tm.loans)),
		seq:          tm.seq,
		txOrder:      make(map[ledger.TransactionID]uint64, len(tm.txOrder)),
	}
	for k, v := range tm.clients {
		s.clients[k] = v
	}
	for k, v := range tm.accounts {
		s.accounts[k] = v
	}
	for k, v := range tm.transactions {
		s.transactions[k] = v
	}
	for k, v := range tm.cards {
		s.cards[k] = v
	}
	for k, v := range tm.loans {
		s.loans[k] = v
	}
	for k, v := range tm.txOrder {
		s.txOrder[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.clients = s.clients
	tm.accounts = s.accounts
	tm.transactions = s.transactions
	tm.cards = s.cards
	tm.loans = s.loans
	tm.seq = s.seq
	tm.txOrder = s.txOrder
}
