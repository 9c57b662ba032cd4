/*
Package bank is the banking facade over the ledger engine.

PURPOSE:
  Composes the ledger components (applier, orchestrator, maintainer,
  projection cache) into the operations the portals call: deposits,
  withdrawals, transfers, client/account management, admin transaction
  edits with mandatory recompute, card issuance, and loans.

KEY RULES ENFORCED HERE:
  - Every mutating operation refreshes the projection cache afterwards.
  - Editing or deleting a transaction ALWAYS recomputes the owning
    account's balance; there is no path that changes a row and leaves the
    stored balance behind.
  - There is no "set balance" operation. Balances only move through
    transactions and recomputes.

LOGGING:
  Structured logging via logrus. Money movements log account, amount, and
  reference at info level; rejected operations log at warn level.

SEE ALSO:
  - ledger/: The engine this wraps
  - api/handlers.go: HTTP surface over this service
*/
package bank

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meridian/ledger-engine/ledger"
)

// Service is the banking facade. Construct with NewService.
type Service struct {
	store      ledger.Store
	locks      *ledger.AccountLocks
	applier    *ledger.Applier
	transfers  *ledger.Orchestrator
	maintainer *ledger.Maintainer
	cache      *ledger.Projection
	log        *logrus.Logger

	now func() time.Time
}

func NewService(store ledger.Store, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	locks := ledger.NewAccountLocks()
	return &Service{
		store:      store,
		locks:      locks,
		applier:    ledger.NewApplier(store, locks),
		transfers:  ledger.NewOrchestrator(store, locks),
		maintainer: ledger.NewMaintainer(store),
		cache:      ledger.NewProjection(store),
		log:        log,
		now:        time.Now,
	}
}

// Projection exposes the read-side cache for display queries.
func (s *Service) Projection() *ledger.Projection { return s.cache }

// Refresh re-fetches the projection cache from the store.
func (s *Service) Refresh(ctx context.Context) error { return s.cache.Refresh(ctx) }

// refresh is the post-write cache reload. A refresh failure does not fail
// the already-committed operation; the cache self-heals on the next load.
func (s *Service) refresh(ctx context.Context) {
	if err := s.cache.Refresh(ctx); err != nil {
		s.log.WithError(err).Warn("projection refresh failed")
	}
}

// =============================================================================
// MONEY MOVEMENTS
// =============================================================================

// Deposit credits amount (a positive magnitude) into the account.
func (s *Service) Deposit(ctx context.Context, accountID ledger.AccountID, amount decimal.Decimal, description string) (*ledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrAmountNotPositive
	}
	tx, err := s.applier.Apply(ctx, ledger.ApplyInput{
		AccountID:   accountID,
		Type:        ledger.TxDeposit,
		Amount:      ledger.NewMoney(amount, ""),
		Description: description,
	})
	if err != nil {
		s.log.WithError(err).WithField("account", accountID).Warn("deposit rejected")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"account": accountID, "amount": amount.String(), "ref": tx.Reference}).Info("deposit recorded")
	s.refresh(ctx)
	return tx, nil
}

// Withdraw debits amount (a positive magnitude) from the account, subject
// to the balance floor.
func (s *Service) Withdraw(ctx context.Context, accountID ledger.AccountID, amount decimal.Decimal, description string) (*ledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrAmountNotPositive
	}
	tx, err := s.applier.Apply(ctx, ledger.ApplyInput{
		AccountID:   accountID,
		Type:        ledger.TxWithdrawal,
		Amount:      ledger.NewMoney(amount.Neg(), ""),
		Description: description,
	})
	if err != nil {
		s.log.WithError(err).WithField("account", accountID).Warn("withdrawal rejected")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"account": accountID, "amount": amount.String(), "ref": tx.Reference}).Info("withdrawal recorded")
	s.refresh(ctx)
	return tx, nil
}

// Transfer moves amount between two accounts as a paired debit/credit.
func (s *Service) Transfer(ctx context.Context, fromID, toID ledger.AccountID, amount decimal.Decimal, description string) (*ledger.TransferResult, error) {
	result, err := s.transfers.Transfer(ctx, fromID, toID, ledger.NewMoney(amount, ""), description)
	if err != nil {
		// A partial failure may still have changed rows; reload so the
		// cache shows whatever actually persisted.
		s.refresh(ctx)
		s.log.WithError(err).WithFields(logrus.Fields{"from": fromID, "to": toID}).Warn("transfer failed")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"from": fromID, "to": toID, "amount": amount.String(), "ref": result.Reference,
	}).Info("transfer completed")
	s.refresh(ctx)
	return result, nil
}

// RecordTransaction inserts an arbitrary validated transaction (admin
// surface). Same validation and synchronous recompute as any movement.
func (s *Service) RecordTransaction(ctx context.Context, in ledger.ApplyInput) (*ledger.Transaction, error) {
	tx, err := s.applier.Apply(ctx, in)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx)
	return tx, nil
}

// =============================================================================
// TRANSACTION EDITS - recompute is mandatory, not optional
// =============================================================================

// UpdateTransactionInput patches mutable transaction fields. AccountID is
// immutable; there is deliberately no way to move a row between accounts.
type UpdateTransactionInput struct {
	Amount      *decimal.Decimal
	Type        *ledger.TransactionType
	Description *string
	Status      *ledger.TransactionStatus
}

// UpdateTransaction patches a transaction row and recomputes the owning
// account's balance before returning.
func (s *Service) UpdateTransaction(ctx context.Context, id ledger.TransactionID, in UpdateTransactionInput) (*ledger.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, ledger.StoreError("get transaction", err)
	}
	if tx == nil {
		return nil, ledger.ErrTransactionNotFound
	}

	if in.Type != nil {
		if !ledger.ValidTransactionType(*in.Type) {
			return nil, ledger.ErrInvalidTransactionType
		}
		tx.Type = *in.Type
	}
	if in.Amount != nil {
		tx.Amount = ledger.NewMoney(*in.Amount, tx.Amount.Currency)
	}
	if in.Description != nil {
		tx.Description = *in.Description
	}
	if in.Status != nil {
		tx.Status = *in.Status
	}
	tx.UpdatedAt = s.now()

	unlock := s.locks.Lock(tx.AccountID)
	defer unlock()

	if err := s.store.UpdateTransaction(ctx, *tx); err != nil {
		return nil, ledger.StoreError("update transaction", err)
	}
	if _, err := s.maintainer.Recompute(ctx, tx.AccountID); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"transaction": id, "account": tx.AccountID}).Info("transaction updated, balance recomputed")
	s.refresh(ctx)
	return tx, nil
}

// DeleteTransaction removes a transaction row and recomputes its former
// account's balance.
func (s *Service) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return ledger.StoreError("get transaction", err)
	}
	if tx == nil {
		return ledger.ErrTransactionNotFound
	}

	unlock := s.locks.Lock(tx.AccountID)
	defer unlock()

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return ledger.StoreError("delete transaction", err)
	}
	if _, err := s.maintainer.Recompute(ctx, tx.AccountID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"transaction": id, "account": tx.AccountID}).Info("transaction deleted, balance recomputed")
	s.refresh(ctx)
	return nil
}

// =============================================================================
// RECOMPUTE SURFACE
// =============================================================================

func (s *Service) RecomputeAccountBalance(ctx context.Context, accountID ledger.AccountID) (ledger.Money, error) {
	unlock := s.locks.Lock(accountID)
	balance, err := s.maintainer.Recompute(ctx, accountID)
	unlock()
	if err != nil {
		return ledger.Money{}, err
	}
	s.refresh(ctx)
	return balance, nil
}

func (s *Service) RecomputeAllBalances(ctx context.Context) error {
	if err := s.maintainer.RecomputeAll(ctx); err != nil {
		return err
	}
	s.refresh(ctx)
	return nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Service) CreateClient(ctx context.Context, c ledger.Client) (*ledger.Client, error) {
	now := s.now()
	if c.ID == "" {
		c.ID = ledger.ClientID(ledger.NewID("cli"))
	}
	if c.KYCStatus == "" {
		c.KYCStatus = ledger.KYCPending
	}
	if c.RiskLevel == "" {
		c.RiskLevel = ledger.RiskLow
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.store.InsertClient(ctx, c); err != nil {
		return nil, ledger.StoreError("insert client", err)
	}
	s.log.WithField("client", c.ID).Info("client created")
	s.refresh(ctx)
	return &c, nil
}

func (s *Service) UpdateClient(ctx context.Context, c ledger.Client) (*ledger.Client, error) {
	existing, err := s.store.GetClient(ctx, c.ID)
	if err != nil {
		return nil, ledger.StoreError("get client", err)
	}
	if existing == nil {
		return nil, ledger.ErrClientNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	if err := s.store.UpdateClient(ctx, c); err != nil {
		return nil, ledger.StoreError("update client", err)
	}
	s.refresh(ctx)
	return &c, nil
}

func (s *Service) DeleteClient(ctx context.Context, id ledger.ClientID) error {
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return ledger.StoreError("delete client", err)
	}
	s.refresh(ctx)
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// OpenAccountInput describes a new account. Number is generated.
type OpenAccountInput struct {
	ClientID ledger.ClientID
	Type     ledger.AccountType
	Currency string

	InterestRate   *decimal.Decimal
	OverdraftLimit *decimal.Decimal
	MonthlyFee     *decimal.Decimal
}

// OpenAccount creates an active zero-balance account for an existing
// client and back-fills the client's account-number reference on their
// first account.
func (s *Service) OpenAccount(ctx context.Context, in OpenAccountInput) (*ledger.Account, error) {
	if !ledger.ValidAccountType(in.Type) {
		return nil, ledger.ErrInvalidAccountType
	}
	client, err := s.store.GetClient(ctx, in.ClientID)
	if err != nil {
		return nil, ledger.StoreError("get client", err)
	}
	if client == nil {
		return nil, ledger.ErrClientNotFound
	}

	number, err := s.uniqueAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	account := ledger.Account{
		ID:             ledger.AccountID(ledger.NewID("acc")),
		ClientID:       in.ClientID,
		Number:         number,
		Type:           in.Type,
		Currency:       currency,
		Status:         ledger.AccountActive,
		Balance:        ledger.ZeroMoney(currency),
		InterestRate:   in.InterestRate,
		OverdraftLimit: in.OverdraftLimit,
		MonthlyFee:     in.MonthlyFee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.InsertAccount(ctx, account); err != nil {
		return nil, ledger.StoreError("insert account", err)
	}

	if client.AccountNumber == "" {
		client.AccountNumber = number
		client.UpdatedAt = now
		if err := s.store.UpdateClient(ctx, *client); err != nil {
			return nil, ledger.StoreError("update client", err)
		}
	}

	s.log.WithFields(logrus.Fields{"account": account.ID, "number": number, "client": in.ClientID}).Info("account opened")
	s.refresh(ctx)
	return &account, nil
}

func (s *Service) uniqueAccountNumber(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		number, err := GenerateAccountNumber()
		if err != nil {
			return "", err
		}
		existing, err := s.store.GetAccountByNumber(ctx, number)
		if err != nil {
			return "", ledger.StoreError("get account by number", err)
		}
		if existing == nil {
			return number, nil
		}
	}
	return "", ledger.StoreError("generate account number", ledger.ErrStore)
}

// SetAccountStatus freezes, unfreezes, deactivates, or closes an account.
func (s *Service) SetAccountStatus(ctx context.Context, id ledger.AccountID, status ledger.AccountStatus) (*ledger.Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, ledger.StoreError("get account", err)
	}
	if account == nil {
		return nil, ledger.ErrAccountNotFound
	}
	account.Status = status
	account.UpdatedAt = s.now()
	if err := s.store.UpdateAccount(ctx, *account); err != nil {
		return nil, ledger.StoreError("update account", err)
	}
	s.log.WithFields(logrus.Fields{"account": id, "status": status}).Info("account status changed")
	s.refresh(ctx)
	return account, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return ledger.StoreError("delete account", err)
	}
	s.refresh(ctx)
	return nil
}

// =============================================================================
// QUERY SURFACE
// =============================================================================

// BalanceOf returns the authoritative balance: a fresh fold over the
// store's transaction set (not the cached field, not the projection).
func (s *Service) BalanceOf(ctx context.Context, accountID ledger.AccountID) (ledger.Money, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return ledger.Money{}, ledger.StoreError("get account", err)
	}
	if account == nil {
		return ledger.Money{}, ledger.ErrAccountNotFound
	}
	txs, err := s.store.TransactionsByAccount(ctx, accountID)
	if err != nil {
		return ledger.Money{}, ledger.StoreError("load transactions", err)
	}
	return ledger.NewMoney(ledger.ComputeBalance(accountID, txs), account.Currency), nil
}

// TransactionsOf returns the account's history from the projection cache.
func (s *Service) TransactionsOf(accountID ledger.AccountID) []ledger.Transaction {
	return s.cache.TransactionsByAccount(accountID)
}

// AccountsOf returns the client's accounts from the projection cache.
func (s *Service) AccountsOf(clientID ledger.ClientID) []ledger.Account {
	return s.cache.AccountsByClient(clientID)
}
