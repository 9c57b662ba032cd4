/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts cross the wire as decimal strings ("125.50"), never floats.
  shopspring/decimal unmarshals both quoted and bare JSON numbers, so
  clients may send either; responses always quote.

VALIDATION:
  Validation is done in handlers and the service layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/ledger-engine/ledger"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID            string `json:"id"`
	AccountNumber string `json:"account_number,omitempty"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	DateOfBirth   string `json:"date_of_birth,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	ZipCode       string `json:"zip_code,omitempty"`
	Country       string `json:"country,omitempty"`

	EmploymentStatus string `json:"employment_status,omitempty"`
	EmployerName     string `json:"employer_name,omitempty"`
	JobTitle         string `json:"job_title,omitempty"`
	AnnualIncome     string `json:"annual_income,omitempty"`

	KYCStatus string `json:"kyc_status"`
	RiskLevel string `json:"risk_level"`
	CreatedAt string `json:"created_at,omitempty"`
}

// AccountDTO represents an account in API responses. Balance is the
// stored (materialized) balance; GET /accounts/{id}/balance returns the
// authoritative fold.
type AccountDTO struct {
	ID             string `json:"id"`
	ClientID       string `json:"client_id"`
	AccountNumber  string `json:"account_number"`
	AccountType    string `json:"account_type"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Balance        string `json:"balance"`
	InterestRate   string `json:"interest_rate,omitempty"`
	OverdraftLimit string `json:"overdraft_limit,omitempty"`
	MonthlyFee     string `json:"monthly_fee,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID               string `json:"id"`
	AccountID        string `json:"account_id"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency,omitempty"`
	Description      string `json:"description,omitempty"`
	Status           string `json:"status"`
	Reference        string `json:"reference_number,omitempty"`
	RecipientAccount string `json:"recipient_account,omitempty"`
	SenderAccount    string `json:"sender_account,omitempty"`
	CreatedAt        string `json:"created_at"`

	// Running balance immediately after this transaction, when the
	// handler computes history with balances.
	Balance string `json:"balance,omitempty"`
}

// BalanceDTO is the authoritative balance response: recomputed from the
// transaction history at request time.
type BalanceDTO struct {
	AccountID     string `json:"account_id"`
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
	Balance       string `json:"balance"`
	Stored        string `json:"stored_balance"`
	Consistent    bool   `json:"consistent"`
	AsOf          string `json:"as_of"`
}

// TransferResultDTO is the response after a completed transfer.
type TransferResultDTO struct {
	Reference  string `json:"reference"`
	DebitTxID  string `json:"debit_transaction_id"`
	CreditTxID string `json:"credit_transaction_id"`
	Amount     string `json:"amount"`
}

// CardDTO represents a payment card. The PAN is masked; the CVV never
// leaves the server.
type CardDTO struct {
	ID              string `json:"id"`
	ClientID        string `json:"client_id"`
	CardNumber      string `json:"card_number"`
	CardType        string `json:"card_type"`
	Network         string `json:"network"`
	ExpiryDate      string `json:"expiry_date"`
	Status          string `json:"status"`
	CreditLimit     string `json:"credit_limit,omitempty"`
	AvailableCredit string `json:"available_credit,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// LoanDTO represents a loan.
type LoanDTO struct {
	ID             string `json:"id"`
	ClientID       string `json:"client_id"`
	LoanType       string `json:"loan_type"`
	Amount         string `json:"amount"`
	InterestRate   string `json:"interest_rate"`
	TermMonths     int    `json:"term_months"`
	MonthlyPayment string `json:"monthly_payment"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// RecomputeResultDTO reports a balance recompute.
type RecomputeResultDTO struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ClientRequest is the request to create or update a client.
type ClientRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Country     string `json:"country"`

	EmploymentStatus string          `json:"employment_status"`
	EmployerName     string          `json:"employer_name"`
	JobTitle         string          `json:"job_title"`
	AnnualIncome     decimal.Decimal `json:"annual_income"`

	KYCStatus string `json:"kyc_status,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`
}

// OpenAccountRequest is the request to open an account. The account
// number is generated server-side.
type OpenAccountRequest struct {
	ClientID       string           `json:"client_id"`
	AccountType    string           `json:"account_type"`
	Currency       string           `json:"currency,omitempty"`
	InterestRate   *decimal.Decimal `json:"interest_rate,omitempty"`
	OverdraftLimit *decimal.Decimal `json:"overdraft_limit,omitempty"`
	MonthlyFee     *decimal.Decimal `json:"monthly_fee,omitempty"`
}

// StatusRequest changes an account or card status.
type StatusRequest struct {
	Status string `json:"status"`
}

// MovementRequest is a deposit or withdrawal: amount is a positive
// magnitude, direction comes from the endpoint.
type MovementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// TransferRequest moves money between two accounts.
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
}

// RecordTransactionRequest inserts an arbitrary signed transaction
// (admin surface). Amount carries the canonical sign.
type RecordTransactionRequest struct {
	AccountID   string          `json:"account_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// UpdateTransactionRequest patches mutable transaction fields. Absent
// fields are left unchanged.
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Type        *string          `json:"type,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *string          `json:"status,omitempty"`
}

// IssueCardRequest issues a card for a client.
type IssueCardRequest struct {
	CardType    string           `json:"card_type"`
	Network     string           `json:"network"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
}

// OriginateLoanRequest creates a loan, optionally disbursing the
// principal to an account.
type OriginateLoanRequest struct {
	ClientID   string          `json:"client_id"`
	LoanType   string          `json:"loan_type"`
	Amount     decimal.Decimal `json:"amount"`
	AnnualRate decimal.Decimal `json:"annual_rate"`
	TermMonths int             `json:"term_months"`
	DisburseTo string          `json:"disburse_to,omitempty"`
}

// RepayLoanRequest records one loan payment from an account.
type RepayLoanRequest struct {
	FromAccountID string          `json:"from_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toClientDTO(c ledger.Client) ClientDTO {
	return ClientDTO{
		ID:               string(c.ID),
		AccountNumber:    c.AccountNumber,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Email:            c.Email,
		Phone:            c.Phone,
		DateOfBirth:      c.DateOfBirth,
		Address:          c.Address,
		City:             c.City,
		State:            c.State,
		ZipCode:          c.ZipCode,
		Country:          c.Country,
		EmploymentStatus: c.EmploymentStatus,
		EmployerName:     c.EmployerName,
		JobTitle:         c.JobTitle,
		AnnualIncome:     c.AnnualIncome.String(),
		KYCStatus:        string(c.KYCStatus),
		RiskLevel:        string(c.RiskLevel),
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
	}
}

func toAccountDTO(a ledger.Account) AccountDTO {
	dto := AccountDTO{
		ID:            string(a.ID),
		ClientID:      string(a.ClientID),
		AccountNumber: a.Number,
		AccountType:   string(a.Type),
		Currency:      a.Currency,
		Status:        string(a.Status),
		Balance:       a.Balance.Amount.StringFixed(2),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	if a.InterestRate != nil {
		dto.InterestRate = a.InterestRate.String()
	}
	if a.OverdraftLimit != nil {
		dto.OverdraftLimit = a.OverdraftLimit.String()
	}
	if a.MonthlyFee != nil {
		dto.MonthlyFee = a.MonthlyFee.String()
	}
	return dto
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:               string(tx.ID),
		AccountID:        string(tx.AccountID),
		Type:             string(tx.Type),
		Amount:           tx.Amount.Amount.StringFixed(2),
		Currency:         tx.Amount.Currency,
		Description:      tx.Description,
		Status:           string(tx.Status),
		Reference:        tx.Reference,
		RecipientAccount: tx.RecipientAccount,
		SenderAccount:    tx.SenderAccount,
		CreatedAt:        tx.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toCardDTO(c ledger.Card) CardDTO {
	dto := CardDTO{
		ID:         string(c.ID),
		ClientID:   string(c.ClientID),
		CardNumber: maskCardNumber(c.Number),
		CardType:   string(c.Type),
		Network:    string(c.Network),
		ExpiryDate: c.ExpiryDate,
		Status:     string(c.Status),
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
	if c.CreditLimit != nil {
		dto.CreditLimit = c.CreditLimit.StringFixed(2)
	}
	if c.AvailableCredit != nil {
		dto.AvailableCredit = c.AvailableCredit.StringFixed(2)
	}
	return dto
}

// maskCardNumber keeps the last four digits: "**** **** **** 1234".
func maskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "**** **** **** " + number[len(number)-4:]
}

func toLoanDTO(l ledger.Loan) LoanDTO {
	return LoanDTO{
		ID:             string(l.ID),
		ClientID:       string(l.ClientID),
		LoanType:       string(l.Type),
		Amount:         l.Amount.StringFixed(2),
		InterestRate:   l.InterestRate.String(),
		TermMonths:     l.TermMonths,
		MonthlyPayment: l.MonthlyPayment.StringFixed(2),
		Status:         string(l.Status),
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
	}
}
