/*
Package sqlite provides a SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  clients:      Client profiles
  accounts:     Accounts with the materialized balance column
  transactions: The ledger rows balances are folded from
  cards:        Issued payment cards
  loans:        Client loans

BALANCE COLUMN:
  accounts.balance is written ONLY via UpdateAccountBalance, which the
  engine's Maintainer alone calls. There is no other UPDATE touching it;
  InsertAccount writes the opening zero and UpdateAccount deliberately
  excludes the column.

DECIMALS:
  Monetary values are stored as TEXT and parsed with shopspring/decimal.
  Storing REAL would reintroduce the floating-point drift the engine
  exists to avoid.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

TRANSACTIONS:
  WithTx wraps a function in BEGIN/COMMIT with rollback on error. The
  transfer orchestrator uses it so both legs and both recomputed balances
  commit atomically.

USAGE:
  store, err := sqlite.New("./data/bank.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/meridian/ledger-engine/ledger"
)

// Store implements ledger.Store and ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		account_number TEXT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		date_of_birth TEXT,
		address TEXT,
		city TEXT,
		state TEXT,
		zip_code TEXT,
		country TEXT,
		employment_status TEXT,
		employer_name TEXT,
		job_title TEXT,
		annual_income TEXT NOT NULL DEFAULT '0',
		kyc_status TEXT NOT NULL DEFAULT 'pending',
		risk_level TEXT NOT NULL DEFAULT 'low',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		account_number TEXT NOT NULL UNIQUE,
		account_type TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		interest_rate TEXT,
		overdraft_limit TEXT,
		monthly_fee TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_client
		ON accounts(client_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT,
		description TEXT,
		status TEXT NOT NULL,
		reference_number TEXT,
		recipient_account TEXT,
		sender_account TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Balance recompute hot path
	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_number) WHERE reference_number IS NOT NULL;

	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		card_number TEXT NOT NULL,
		card_type TEXT NOT NULL,
		card_network TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		cvv TEXT NOT NULL,
		status TEXT NOT NULL,
		credit_limit TEXT,
		available_credit TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cards_client
		ON cards(client_id);

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		loan_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		interest_rate TEXT NOT NULL DEFAULT '0',
		term_months INTEGER NOT NULL,
		monthly_payment TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loans_client
		ON loans(client_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so every row operation
// can run standalone or inside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txView{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txView exposes ledger.Store over an open *sql.Tx. It takes no locks:
// WithTx already holds the store mutex for the duration of fn.
type txView struct {
	q *sql.Tx
}

func (v *txView) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return listAccounts(ctx, v.q)
}

func (v *txView) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return getAccount(ctx, v.q, id)
}

func (v *txView) GetAccountByNumber(ctx context.Context, number string) (*ledger.Account, error) {
	return getAccountByNumber(ctx, v.q, number)
}

func (v *txView) InsertAccount(ctx context.Context, a ledger.Account) error {
	return insertAccount(ctx, v.q, a)
}

func (v *txView) UpdateAccount(ctx context.Context, a ledger.Account) error {
	return updateAccount(ctx, v.q, a)
}

func (v *txView) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	return deleteAccount(ctx, v.q, id)
}

func (v *txView) UpdateAccountBalance(ctx context.Context, id ledger.AccountID, balance ledger.Money, updatedAt time.Time) error {
	return updateAccountBalance(ctx, v.q, id, balance, updatedAt)
}

func (v *txView) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	return listTransactions(ctx, v.q)
}

func (v *txView) TransactionsByAccount(ctx context.Context, accountID ledger.AccountID) ([]ledger.Transaction, error) {
	return transactionsByAccount(ctx, v.q, accountID)
}

func (v *txView) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return getTransaction(ctx, v.q, id)
}

func (v *txView) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	return insertTransaction(ctx, v.q, tx)
}

func (v *txView) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	return updateTransaction(ctx, v.q, tx)
}

func (v *txView) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	return deleteTransaction(ctx, v.q, id)
}

func (v *txView) ListClients(ctx context.Context) ([]ledger.Client, error) {
	return listClients(ctx, v.q)
}

func (v *txView) GetClient(ctx context.Context, id ledger.ClientID) (*ledger.Client, error) {
	return getClient(ctx, v.q, id)
}

func (v *txView) InsertClient(ctx context.Context, c ledger.Client) error {
	return insertClient(ctx, v.q, c)
}

func (v *txView) UpdateClient(ctx context.Context, c ledger.Client) error {
	return updateClient(ctx, v.q, c)
}

func (v *txView) DeleteClient(ctx context.Context, id ledger.ClientID) error {
	return deleteClient(ctx, v.q, id)
}

func (v *txView) ListCards(ctx context.Context) ([]ledger.Card, error) {
	return queryCards(ctx, v.q, `SELECT `+cardColumns+` FROM cards ORDER BY created_at DESC, id`)
}

func (v *txView) CardsByClient(ctx context.Context, clientID ledger.ClientID) ([]ledger.Card, error) {
	return cardsByClient(ctx, v.q, clientID)
}

func (v *txView) InsertCard(ctx context.Context, c ledger.Card) error {
	return insertCard(ctx, v.q, c)
}

func (v *txView) UpdateCard(ctx context.Context, c ledger.Card) error {
	return updateCard(ctx, v.q, c)
}

func (v *txView) DeleteCard(ctx context.Context, id ledger.CardID) error {
	return deleteCard(ctx, v.q, id)
}

func (v *txView) ListLoans(ctx context.Context) ([]ledger.Loan, error) {
	return queryLoans(ctx, v.q, `SELECT `+loanColumns+` FROM loans ORDER BY created_at DESC, id`)
}

func (v *txView) LoansByClient(ctx context.Context, clientID ledger.ClientID) ([]ledger.Loan, error) {
	return loansByClient(ctx, v.q, clientID)
}

func (v *txView) InsertLoan(ctx context.Context, l ledger.Loan) error {
	return insertLoan(ctx, v.q, l)
}

func (v *txView) UpdateLoan(ctx context.Context, l ledger.Loan) error {
	return updateLoan(ctx, v.q, l)
}

func (v *txView) DeleteLoan(ctx context.Context, id ledger.LoanID) error {
	return deleteLoan(ctx, v.q, id)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = `id, client_id, account_number, account_type, currency, status,
	balance, interest_rate, overdraft_limit, monthly_fee, created_at, updated_at`

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db)
}

func listAccounts(ctx context.Context, q dbtx) ([]ledger.Account, error) {
	return queryAccounts(ctx, q,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC, id`)
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, q dbtx, id ledger.AccountID) (*ledger.Account, error) {
	return oneAccount(ctx, q,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccountByNumber(ctx, s.db, number)
}

func getAccountByNumber(ctx context.Context, q dbtx, number string) (*ledger.Account, error) {
	return oneAccount(ctx, q,
		`SELECT `+accountColumns+` FROM accounts WHERE account_number = ?`, number)
}

func oneAccount(ctx context.Context, q dbtx, query string, args ...any) (*ledger.Account, error) {
	accounts, err := queryAccounts(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (s *Store) InsertAccount(ctx context.Context, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAccount(ctx, s.db, a)
}

func insertAccount(ctx context.Context, q dbtx, a ledger.Account) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts
		(id, client_id, account_number, account_type, currency, status,
		 balance, interest_rate, overdraft_limit, monthly_fee, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClientID, a.Number, a.Type, a.Currency, a.Status,
		a.Balance.Amount.String(),
		nullDecimal(a.InterestRate), nullDecimal(a.OverdraftLimit), nullDecimal(a.MonthlyFee),
		fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// UpdateAccount writes every column EXCEPT balance; the balance column
// moves only through UpdateAccountBalance.
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAccount(ctx, s.db, a)
}

func updateAccount(ctx context.Context, q dbtx, a ledger.Account) error {
	res, err := q.ExecContext(ctx, `
		UPDATE accounts SET
			client_id = ?, account_number = ?, account_type = ?, currency = ?,
			status = ?, interest_rate = ?, overdraft_limit = ?, monthly_fee = ?,
			updated_at = ?
		WHERE id = ?`,
		a.ClientID, a.Number, a.Type, a.Currency,
		a.Status, nullDecimal(a.InterestRate), nullDecimal(a.OverdraftLimit), nullDecimal(a.MonthlyFee),
		fmtTime(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(res, ledger.ErrAccountNotFound)
}

func (s *Store) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAccount(ctx, s.db, id)
}

func deleteAccount(ctx context.Context, q dbtx, id ledger.AccountID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

func (s *Store) UpdateAccountBalance(ctx context.Context, id ledger.AccountID, balance ledger.Money, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAccountBalance(ctx, s.db, id, balance, updatedAt)
}

func updateAccountBalance(ctx context.Context, q dbtx, id ledger.AccountID, balance ledger.Money, updatedAt time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance.Amount.String(), fmtTime(updatedAt), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return requireRow(res, ledger.ErrAccountNotFound)
}

func queryAccounts(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Account, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a                    ledger.Account
			balance              string
			rate, overdraft, fee sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&a.ID, &a.ClientID, &a.Number, &a.Type, &a.Currency, &a.Status,
			&balance, &rate, &overdraft, &fee, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Balance = ledger.NewMoney(parseDecimal(balance), a.Currency)
		a.InterestRate = scanNullDecimal(rate)
		a.OverdraftLimit = scanNullDecimal(overdraft)
		a.MonthlyFee = scanNullDecimal(fee)
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, account_id, tx_type, amount, currency, description, status,
	reference_number, recipient_account, sender_account, created_at, updated_at`

func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db)
}

func listTransactions(ctx context.Context, q dbtx) ([]ledger.Transaction, error) {
	return queryTransactions(ctx, q,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at ASC, rowid ASC`)
}

func (s *Store) TransactionsByAccount(ctx context.Context, accountID ledger.AccountID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByAccount(ctx, s.db, accountID)
}

func transactionsByAccount(ctx context.Context, q dbtx, accountID ledger.AccountID) ([]ledger.Transaction, error) {
	return queryTransactions(ctx, q,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ? ORDER BY created_at ASC, rowid ASC`, accountID)
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, q dbtx, id ledger.TransactionID) (*ledger.Transaction, error) {
	txs, err := queryTransactions(ctx, q,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransaction(ctx, s.db, tx)
}

func insertTransaction(ctx context.Context, q dbtx, tx ledger.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions
		(id, account_id, tx_type, amount, currency, description, status,
		 reference_number, recipient_account, sender_account, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.AccountID, tx.Type, tx.Amount.Amount.String(), tx.Amount.Currency,
		tx.Description, tx.Status,
		nullString(tx.Reference), nullString(tx.RecipientAccount), nullString(tx.SenderAccount),
		fmtTime(tx.CreatedAt), fmtTime(tx.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTransaction(ctx, s.db, tx)
}

func updateTransaction(ctx context.Context, q dbtx, tx ledger.Transaction) error {
	res, err := q.ExecContext(ctx, `
		UPDATE transactions SET
			tx_type = ?, amount = ?, currency = ?, description = ?, status = ?,
			reference_number = ?, recipient_account = ?, sender_account = ?, updated_at = ?
		WHERE id = ?`,
		tx.Type, tx.Amount.Amount.String(), tx.Amount.Currency, tx.Description, tx.Status,
		nullString(tx.Reference), nullString(tx.RecipientAccount), nullString(tx.SenderAccount),
		fmtTime(tx.UpdatedAt), tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(res, ledger.ErrTransactionNotFound)
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, id)
}

func deleteTransaction(ctx context.Context, q dbtx, id ledger.TransactionID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

func queryTransactions(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var (
			tx                       ledger.Transaction
			amount                   string
			currency                 sql.NullString
			description              sql.NullString
			reference, recip, sender sql.NullString
			createdAt, updatedAt     string
		)
		if err := rows.Scan(
			&tx.ID, &tx.AccountID, &tx.Type, &amount, &currency, &description, &tx.Status,
			&reference, &recip, &sender, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Amount = ledger.NewMoney(parseDecimal(amount), currency.String)
		tx.Description = description.String
		tx.Reference = reference.String
		tx.RecipientAccount = recip.String
		tx.SenderAccount = sender.String
		tx.CreatedAt = parseTime(createdAt)
		tx.UpdatedAt = parseTime(updatedAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// CLIENTS
// =============================================================================

const clientColumns = `id, account_number, first_name, last_name, email, phone,
	date_of_birth, address, city, state, zip_code, country,
	employment_status, employer_name, job_title, annual_income,
	kyc_status, risk_level, created_at, updated_at`

func (s *Store) ListClients(ctx context.Context) ([]ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listClients(ctx, s.db)
}

func listClients(ctx context.Context, q dbtx) ([]ledger.Client, error) {
	return queryClients(ctx, q,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC, id`)
}

func (s *Store) GetClient(ctx context.Context, id ledger.ClientID) (*ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getClient(ctx, s.db, id)
}

func getClient(ctx context.Context, q dbtx, id ledger.ClientID) (*ledger.Client, error) {
	clients, err := queryClients(ctx, q,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, nil
	}
	return &clients[0], nil
}

func (s *Store) InsertClient(ctx context.Context, c ledger.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertClient(ctx, s.db, c)
}

func insertClient(ctx context.Context, q dbtx, c ledger.Client) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO clients
		(id, account_number, first_name, last_name, email, phone,
		 date_of_birth, address, city, state, zip_code, country,
		 employment_status, employer_name, job_title, annual_income,
		 kyc_status, risk_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, nullString(c.AccountNumber), c.FirstName, c.LastName, c.Email, c.Phone,
		c.DateOfBirth, c.Address, c.City, c.State, c.ZipCode, c.Country,
		c.EmploymentStatus, c.EmployerName, c.JobTitle, c.AnnualIncome.String(),
		c.KYCStatus, c.RiskLevel, fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (s *Store) UpdateClient(ctx context.Context, c ledger.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateClient(ctx, s.db, c)
}

func updateClient(ctx context.Context, q dbtx, c ledger.Client) error {
	res, err := q.ExecContext(ctx, `
		UPDATE clients SET
			account_number = ?, first_name = ?, last_name = ?, email = ?, phone = ?,
			date_of_birth = ?, address = ?, city = ?, state = ?, zip_code = ?, country = ?,
			employment_status = ?, employer_name = ?, job_title = ?, annual_income = ?,
			kyc_status = ?, risk_level = ?, updated_at = ?
		WHERE id = ?`,
		nullString(c.AccountNumber), c.FirstName, c.LastName, c.Email, c.Phone,
		c.DateOfBirth, c.Address, c.City, c.State, c.ZipCode, c.Country,
		c.EmploymentStatus, c.EmployerName, c.JobTitle, c.AnnualIncome.String(),
		c.KYCStatus, c.RiskLevel, fmtTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireRow(res, ledger.ErrClientNotFound)
}

func (s *Store) DeleteClient(ctx context.Context, id ledger.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteClient(ctx, s.db, id)
}

func deleteClient(ctx context.Context, q dbtx, id ledger.ClientID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	return err
}

func queryClients(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Client, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []ledger.Client
	for rows.Next() {
		var (
			c                    ledger.Client
			accountNumber        sql.NullString
			income               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&c.ID, &accountNumber, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
			&c.DateOfBirth, &c.Address, &c.City, &c.State, &c.ZipCode, &c.Country,
			&c.EmploymentStatus, &c.EmployerName, &c.JobTitle, &income,
			&c.KYCStatus, &c.RiskLevel, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		c.AccountNumber = accountNumber.String
		c.AnnualIncome = parseDecimal(income)
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// =============================================================================
// CARDS
// =============================================================================

const cardColumns = `id, client_id, card_number, card_type, card_network,
	expiry_date, cvv, status, credit_limit, available_credit, created_at, updated_at`

func (s *Store) ListCards(ctx context.Context) ([]ledger.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryCards(ctx, s.db, `SELECT `+cardColumns+` FROM cards ORDER BY created_at DESC, id`)
}

func (s *Store) CardsByClient(ctx context.Context, clientID ledger.ClientID) ([]ledger.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cardsByClient(ctx, s.db, clientID)
}

func cardsByClient(ctx context.Context, q dbtx, clientID ledger.ClientID) ([]ledger.Card, error) {
	return queryCards(ctx, q,
		`SELECT `+cardColumns+` FROM cards WHERE client_id = ? ORDER BY created_at DESC, id`, clientID)
}

func (s *Store) InsertCard(ctx context.Context, c ledger.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCard(ctx, s.db, c)
}

func insertCard(ctx context.Context, q dbtx, c ledger.Card) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cards
		(id, client_id, card_number, card_type, card_network,
		 expiry_date, cvv, status, credit_limit, available_credit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ClientID, c.Number, c.Type, c.Network,
		c.ExpiryDate, c.CVV, c.Status,
		nullDecimal(c.CreditLimit), nullDecimal(c.AvailableCredit),
		fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (s *Store) UpdateCard(ctx context.Context, c ledger.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCard(ctx, s.db, c)
}

func updateCard(ctx context.Context, q dbtx, c ledger.Card) error {
	res, err := q.ExecContext(ctx, `
		UPDATE cards SET
			status = ?, credit_limit = ?, available_credit = ?, updated_at = ?
		WHERE id = ?`,
		c.Status, nullDecimal(c.CreditLimit), nullDecimal(c.AvailableCredit),
		fmtTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return requireRow(res, ledger.ErrCardNotFound)
}

func (s *Store) DeleteCard(ctx context.Context, id ledger.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCard(ctx, s.db, id)
}

func deleteCard(ctx context.Context, q dbtx, id ledger.CardID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	return err
}

func queryCards(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Card, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []ledger.Card
	for rows.Next() {
		var (
			c                    ledger.Card
			limit, available     sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&c.ID, &c.ClientID, &c.Number, &c.Type, &c.Network,
			&c.ExpiryDate, &c.CVV, &c.Status, &limit, &available, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		c.CreditLimit = scanNullDecimal(limit)
		c.AvailableCredit = scanNullDecimal(available)
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// =============================================================================
// LOANS
// =============================================================================

const loanColumns = `id, client_id, loan_type, amount, interest_rate,
	term_months, monthly_payment, status, created_at, updated_at`

func (s *Store) ListLoans(ctx context.Context) ([]ledger.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLoans(ctx, s.db, `SELECT `+loanColumns+` FROM loans ORDER BY created_at DESC, id`)
}

func (s *Store) LoansByClient(ctx context.Context, clientID ledger.ClientID) ([]ledger.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loansByClient(ctx, s.db, clientID)
}

func loansByClient(ctx context.Context, q dbtx, clientID ledger.ClientID) ([]ledger.Loan, error) {
	return queryLoans(ctx, q,
		`SELECT `+loanColumns+` FROM loans WHERE client_id = ? ORDER BY created_at DESC, id`, clientID)
}

func (s *Store) InsertLoan(ctx context.Context, l ledger.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertLoan(ctx, s.db, l)
}

func insertLoan(ctx context.Context, q dbtx, l ledger.Loan) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO loans
		(id, client_id, loan_type, amount, interest_rate,
		 term_months, monthly_payment, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ClientID, l.Type, l.Amount.String(), l.InterestRate.String(),
		l.TermMonths, l.MonthlyPayment.String(), l.Status,
		fmtTime(l.CreatedAt), fmtTime(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (s *Store) UpdateLoan(ctx context.Context, l ledger.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateLoan(ctx, s.db, l)
}

func updateLoan(ctx context.Context, q dbtx, l ledger.Loan) error {
	res, err := q.ExecContext(ctx, `
		UPDATE loans SET status = ?, monthly_payment = ?, updated_at = ? WHERE id = ?`,
		l.Status, l.MonthlyPayment.String(), fmtTime(l.UpdatedAt), l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	return requireRow(res, ledger.ErrLoanNotFound)
}

func (s *Store) DeleteLoan(ctx context.Context, id ledger.LoanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteLoan(ctx, s.db, id)
}

func deleteLoan(ctx context.Context, q dbtx, id ledger.LoanID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id)
	return err
}

func queryLoans(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Loan, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []ledger.Loan
	for rows.Next() {
		var (
			l                     ledger.Loan
			amount, rate, payment string
			createdAt, updatedAt  string
		)
		if err := rows.Scan(
			&l.ID, &l.ClientID, &l.Type, &amount, &rate,
			&l.TermMonths, &payment, &l.Status, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		l.Amount = parseDecimal(amount)
		l.InterestRate = parseDecimal(rate)
		l.MonthlyPayment = parseDecimal(payment)
		l.CreatedAt = parseTime(createdAt)
		l.UpdatedAt = parseTime(updatedAt)
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func fmtTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanNullDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d := parseDecimal(ns.String)
	return &d
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
