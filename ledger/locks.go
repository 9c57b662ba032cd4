// locks.go - Per-account write serialization.
//
// Every balance-affecting operation must hold the account's lock from the
// moment it reads the transaction set for a funds check until the new row
// and recomputed balance are durable. Without this, two concurrent debits
// can both observe a sufficient balance and both commit.
package ledger

import "sync"

// AccountLocks hands out one mutex per account ID. The Applier and the
// Orchestrator must share a single instance so their operations serialize
// against each other.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[AccountID]*sync.Mutex
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[AccountID]*sync.Mutex)}
}

func (al *AccountLocks) get(id AccountID) *sync.Mutex {
	al.mu.Lock()
	defer al.mu.Unlock()
	l, ok := al.locks[id]
	if !ok {
		l = &sync.Mutex{}
		al.locks[id] = l
	}
	return l
}

// Lock acquires the lock for one account.
func (al *AccountLocks) Lock(id AccountID) func() {
	l := al.get(id)
	l.Lock()
	return l.Unlock
}

// LockPair acquires both accounts' locks in ID order so that two transfers
// between the same pair of accounts in opposite directions cannot deadlock.
func (al *AccountLocks) LockPair(a, b AccountID) func() {
	if b < a {
		a, b = b, a
	}
	la, lb := al.get(a), al.get(b)
	la.Lock()
	lb.Lock()
	return func() {
		lb.Unlock()
		la.Unlock()
	}
}
