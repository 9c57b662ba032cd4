/*
Package ledger provides the core account ledger and transaction
consistency engine.

PURPOSE:
  This package contains the domain types and algorithms that keep account
  balances consistent with transaction history. An account's balance is
  never an independent value: it is always the fold (sum) of the signed
  amounts of the account's transactions. Everything else in this package
  exists to protect that invariant.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount with a currency (never floating point)
  - Account: A client-owned account whose Balance is a materialized fold
  - Transaction: A signed ledger row; the ONLY thing that moves a balance
  - Client: The owning identity for accounts

DESIGN PRINCIPLES:
  1. Derived balance: Balance == sum(amount) over the account's transactions
  2. Precision: Uses decimal.Decimal to avoid floating-point penny drift
  3. Signed amounts: credit-positive, debit-negative; sign carries direction
  4. Type safety: Strong typing for IDs prevents mixing account/client IDs

USAGE:
  amount := ledger.NewMoney(decimal.NewFromInt(100), "USD")
  tx := ledger.Transaction{
      AccountID: "acc-1",
      Type:      ledger.TxDeposit,
      Amount:    amount,
  }

SEE ALSO:
  - balance.go: Balance calculation from transactions
  - apply.go: Validated single-account money movement
  - transfer.go: Paired debit/credit orchestration
  - maintain.go: Balance recomputation (the only balance writer)
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount with currency
// =============================================================================

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

func NewMoneyFromFloat(amount float64, currency string) Money {
	return Money{Amount: decimal.NewFromFloat(amount), Currency: currency}
}

func NewMoneyFromInt(amount int64, currency string) Money {
	return Money{Amount: decimal.NewFromInt(amount), Currency: currency}
}

func ZeroMoney(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// MustParseMoney parses a decimal string, returning zero on bad input.
// Test and fixture helper, mirrors decimal.RequireFromString semantics
// without the panic.
func MustParseMoney(s, currency string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney(currency)
	}
	return Money{Amount: d, Currency: currency}
}

func (m Money) Add(o Money) Money        { return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency} }
func (m Money) Sub(o Money) Money        { return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency} }
func (m Money) Neg() Money               { return Money{Amount: m.Amount.Neg(), Currency: m.Currency} }
func (m Money) Abs() Money               { return Money{Amount: m.Amount.Abs(), Currency: m.Currency} }
func (m Money) IsZero() bool             { return m.Amount.IsZero() }
func (m Money) IsNegative() bool         { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool         { return m.Amount.IsPositive() }
func (m Money) Equal(o Money) bool       { return m.Currency == o.Currency && m.Amount.Equal(o.Amount) }
func (m Money) LessThan(o Money) bool    { return m.Amount.LessThan(o.Amount) }
func (m Money) GreaterThan(o Money) bool { return m.Amount.GreaterThan(o.Amount) }

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// SameCurrency reports whether both amounts share a currency. An empty
// currency on either side is treated as a wildcard so that test fixtures
// and legacy rows without a currency still participate in folds.
func (m Money) SameCurrency(o Money) bool {
	return m.Currency == "" || o.Currency == "" || m.Currency == o.Currency
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type ClientID string
type TransactionID string

// =============================================================================
// TRANSACTION - Signed ledger row; the only value that moves a balance
// =============================================================================

type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"    // Credit into an account
	TxWithdrawal TransactionType = "withdrawal" // Debit out of an account
	TxTransfer   TransactionType = "transfer"   // One leg of a two-account transfer
	TxPayment    TransactionType = "payment"    // Bill/loan payment (debit)
	TxFee        TransactionType = "fee"        // Service charge (debit)
)

// ValidTransactionType reports whether t is in the closed enumeration.
// Validated at creation; rows with unknown types never reach the store.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxTransfer, TxPayment, TxFee:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusCancelled TransactionStatus = "cancelled"
)

type Transaction struct {
	ID        TransactionID
	AccountID AccountID

	Type        TransactionType
	Amount      Money // Signed: credit-positive, debit-negative
	Description string
	Status      TransactionStatus

	// Reference correlates audit trails. A transfer's two legs share a
	// reference prefix (same stamp, -D / -C suffixes); there is no
	// structural foreign key between legs.
	Reference string

	// Counterpart account numbers for transfer legs.
	RecipientAccount string
	SenderAccount    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// ACCOUNT - Balance is a materialized fold, never a free-standing field
// =============================================================================

type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
)

func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountInvestment:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountFrozen   AccountStatus = "frozen"
	AccountClosed   AccountStatus = "closed"
)

type Account struct {
	ID       AccountID
	ClientID ClientID

	// Human-facing unique number, immutable once assigned.
	Number string

	Type     AccountType
	Currency string
	Status   AccountStatus

	// Balance is derived: Balance == fold of the account's transactions.
	// Only the Maintainer writes this field (via Store.UpdateAccountBalance).
	Balance Money

	// Policy fields. OverdraftLimit is the magnitude the balance may go
	// below zero (floor = -OverdraftLimit). Nil means no overdraft.
	InterestRate   *decimal.Decimal
	OverdraftLimit *decimal.Decimal
	MonthlyFee     *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Floor returns the lowest balance this account is allowed to reach.
func (a *Account) Floor() decimal.Decimal {
	if a.OverdraftLimit == nil {
		return decimal.Zero
	}
	return a.OverdraftLimit.Neg()
}

// CanTransact reports whether balance-affecting operations are permitted.
// Inactive accounts still transact (dormancy is informational); frozen and
// closed accounts do not.
func (a *Account) CanTransact() bool {
	return a.Status != AccountFrozen && a.Status != AccountClosed
}

// =============================================================================
// CLIENT - Owning identity; weakly back-references accounts by number
// =============================================================================

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type Client struct {
	ID ClientID

	// Set once the client's first account is created. Weak reference;
	// accounts own the strong link via ClientID.
	AccountNumber string

	FirstName string
	LastName  string
	Email     string
	Phone     string

	DateOfBirth string
	Address     string
	City        string
	State       string
	ZipCode     string
	Country     string

	EmploymentStatus string
	EmployerName     string
	JobTitle         string
	AnnualIncome     decimal.Decimal

	KYCStatus KYCStatus
	RiskLevel RiskLevel

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Client) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// =============================================================================
// CARD - Payment card issued to a client
// =============================================================================

type CardType string

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
)

type CardNetwork string

const (
	NetworkVisa       CardNetwork = "visa"
	NetworkMastercard CardNetwork = "mastercard"
	NetworkAmex       CardNetwork = "amex"
)

type CardStatus string

const (
	CardActive    CardStatus = "active"
	CardSuspended CardStatus = "suspended"
	CardExpired   CardStatus = "expired"
)

type CardID string

type Card struct {
	ID       CardID
	ClientID ClientID

	Number  string
	Type    CardType
	Network CardNetwork

	ExpiryDate string // MM/YY
	CVV        string
	Status     CardStatus

	CreditLimit     *decimal.Decimal
	AvailableCredit *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// LOAN - Client borrowing with amortized repayment
// =============================================================================

type LoanType string

const (
	LoanPersonal LoanType = "personal"
	LoanMortgage LoanType = "mortgage"
	LoanBusiness LoanType = "business"
	LoanAuto     LoanType = "auto"
)

type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanActive    LoanStatus = "active"
	LoanPaidOff   LoanStatus = "paid_off"
	LoanDefaulted LoanStatus = "defaulted"
)

type LoanID string

type Loan struct {
	ID       LoanID
	ClientID ClientID

	Type           LoanType
	Amount         decimal.Decimal
	InterestRate   decimal.Decimal // Annual, as a fraction (0.05 = 5%)
	TermMonths     int
	MonthlyPayment decimal.Decimal
	Status         LoanStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}
