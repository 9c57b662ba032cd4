/*
handlers.go - HTTP API handlers for the account ledger engine

PURPOSE:
  Exposes the banking service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Clients:
    GET    /api/clients                    List all clients
    POST   /api/clients                    Create client
    GET    /api/clients/{id}               Get client details
    PUT    /api/clients/{id}               Update client
    DELETE /api/clients/{id}               Delete client
    GET    /api/clients/{id}/accounts      Client's accounts
    GET    /api/clients/{id}/transactions  Transactions across accounts
    GET    /api/clients/{id}/cards         Client's cards
    POST   /api/clients/{id}/cards         Issue a card
    GET    /api/clients/{id}/loans         Client's loans

  Accounts:
    GET    /api/accounts                   List all accounts
    POST   /api/accounts                   Open account
    GET    /api/accounts/{id}              Get account
    PUT    /api/accounts/{id}/status       Freeze/close/reactivate
    DELETE /api/accounts/{id}              Delete account
    GET    /api/accounts/{id}/balance      Authoritative (recomputed) balance
    GET    /api/accounts/{id}/transactions History with running balances
    POST   /api/accounts/{id}/deposit      Deposit
    POST   /api/accounts/{id}/withdraw     Withdraw

  Transfers:
    POST   /api/transfers                  Paired debit/credit transfer

  Transactions (admin surface):
    GET    /api/transactions               List all transactions
    POST   /api/transactions               Record arbitrary signed transaction
    GET    /api/transactions/{id}          Get transaction
    PUT    /api/transactions/{id}          Edit (recomputes balance)
    DELETE /api/transactions/{id}          Delete (recomputes balance)

  Loans:
    POST   /api/loans                      Originate loan
    POST   /api/loans/{id}/payments        Record repayment

  Admin:
    POST   /api/admin/recompute            Recompute every account balance
    POST   /api/admin/recompute/{id}       Recompute one account
    POST   /api/admin/fees                 Post monthly fees
    POST   /api/admin/interest             Post monthly interest

ERROR HANDLING:
  Domain errors map to HTTP status via statusFor():
  - 400: Validation / business-rule rejections (sign, currency, frozen)
  - 404: Missing client/account/transaction/card/loan
  - 422: Insufficient funds (valid request, rejected by balance floor)
  - 500: Store failures, partial transfers

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public;
  this is a demo surface over the engine.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - bank/service.go: The service these delegate to
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian/ledger-engine/bank"
	"github.com/meridian/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *bank.Service

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler creates a new handler over the banking service.
func NewHandler(svc *bank.Service) *Handler {
	return &Handler{Service: svc}
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients := h.Service.Projection().Clients()
	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := ledger.ClientID(chi.URLParam(r, "id"))
	client := h.Service.Projection().ClientByID(id)
	if client == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*client))
}

// CreateClient creates a new client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "first_name and last_name are required", nil)
		return
	}

	client, err := h.Service.CreateClient(r.Context(), clientFromRequest(req))
	if err != nil {
		writeDomainError(w, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(*client))
}

// UpdateClient replaces a client's profile fields.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id := ledger.ClientID(chi.URLParam(r, "id"))

	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c := clientFromRequest(req)
	c.ID = id
	if existing := h.Service.Projection().ClientByID(id); existing != nil {
		c.AccountNumber = existing.AccountNumber
	}

	client, err := h.Service.UpdateClient(r.Context(), c)
	if err != nil {
		writeDomainError(w, "Failed to update client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*client))
}

// DeleteClient removes a client.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := ledger.ClientID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteClient(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete client", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetClientAccounts returns a client's accounts.
func (h *Handler) GetClientAccounts(w http.ResponseWriter, r *http.Request) {
	id := ledger.ClientID(chi.URLParam(r, "id"))
	accounts := h.Service.AccountsOf(id)
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClientTransactions returns transactions across all of a client's
// accounts, newest last.
func (h *Handler) GetClientTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.ClientID(chi.URLParam(r, "id"))
	txs := h.Service.Projection().ClientTransactions(id)
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func clientFromRequest(req ClientRequest) ledger.Client {
	return ledger.Client{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		DateOfBirth:      req.DateOfBirth,
		Address:          req.Address,
		City:             req.City,
		State:            req.State,
		ZipCode:          req.ZipCode,
		Country:          req.Country,
		EmploymentStatus: req.EmploymentStatus,
		EmployerName:     req.EmployerName,
		JobTitle:         req.JobTitle,
		AnnualIncome:     req.AnnualIncome,
		KYCStatus:        ledger.KYCStatus(req.KYCStatus),
		RiskLevel:        ledger.RiskLevel(req.RiskLevel),
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.Service.Projection().Accounts()
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	account := h.Service.Projection().AccountByID(id)
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// OpenAccount opens a new zero-balance account.
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Service.OpenAccount(r.Context(), bank.OpenAccountInput{
		ClientID:       ledger.ClientID(req.ClientID),
		Type:           ledger.AccountType(req.AccountType),
		Currency:       req.Currency,
		InterestRate:   req.InterestRate,
		OverdraftLimit: req.OverdraftLimit,
		MonthlyFee:     req.MonthlyFee,
	})
	if err != nil {
		writeDomainError(w, "Failed to open account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*account))
}

// SetAccountStatus freezes, closes, or reactivates an account.
func (h *Handler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Service.SetAccountStatus(r.Context(), id, ledger.AccountStatus(req.Status))
	if err != nil {
		writeDomainError(w, "Failed to update account status", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// DeleteAccount removes an account.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteAccount(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete account", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetBalance returns the authoritative balance: a fresh fold over the
// account's transaction history, compared against the stored column.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	balance, err := h.Service.BalanceOf(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute balance", err)
		return
	}

	stored := decimal.Zero
	number := ""
	if account := h.Service.Projection().AccountByID(id); account != nil {
		stored = account.Balance.Amount
		number = account.Number
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		AccountID:     string(id),
		AccountNumber: number,
		Currency:      balance.Currency,
		Balance:       balance.Amount.StringFixed(2),
		Stored:        stored.StringFixed(2),
		Consistent:    balance.Amount.Equal(stored),
		AsOf:          time.Now().UTC().Format(time.RFC3339),
	})
}

// GetTransactions returns the account's history with a running balance
// after each row.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	txs := h.Service.TransactionsOf(id)
	balances := ledger.RunningBalances(id, txs)

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
		dtos[i].Balance = balances[i].StringFixed(2)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// MONEY MOVEMENT HANDLERS
// =============================================================================

// Deposit credits an account.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.Service.Deposit)
}

// Withdraw debits an account, subject to the balance floor.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.Service.Withdraw)
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, id ledger.AccountID, amount decimal.Decimal, description string) (*ledger.Transaction, error)) {

	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := apply(r.Context(), id, req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, "Movement rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// Transfer moves money between two accounts as a paired debit/credit.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Service.Transfer(r.Context(),
		ledger.AccountID(req.FromAccountID), ledger.AccountID(req.ToAccountID),
		req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, "Transfer failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferResultDTO{
		Reference:  result.Reference,
		DebitTxID:  string(result.DebitTxID),
		CreditTxID: string(result.CreditTxID),
		Amount:     result.Amount.Amount.StringFixed(2),
	})
}

// =============================================================================
// TRANSACTION HANDLERS (admin surface)
// =============================================================================

// ListTransactions returns every transaction in creation order.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toTransactionDTOs(h.Service.Projection().Transactions()))
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	for _, tx := range h.Service.Projection().Transactions() {
		if tx.ID == id {
			writeJSON(w, http.StatusOK, toTransactionDTO(tx))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Transaction not found", nil)
}

// RecordTransaction inserts an arbitrary signed transaction through the
// same validation and recompute path as any movement.
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Service.RecordTransaction(r.Context(), ledger.ApplyInput{
		AccountID:   ledger.AccountID(req.AccountID),
		Type:        ledger.TransactionType(req.Type),
		Amount:      ledger.NewMoney(req.Amount, ""),
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, "Failed to record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// UpdateTransaction patches a transaction row. The owning account's
// balance is recomputed before the response is written.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := bank.UpdateTransactionInput{
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Type != nil {
		t := ledger.TransactionType(*req.Type)
		in.Type = &t
	}
	if req.Status != nil {
		st := ledger.TransactionStatus(*req.Status)
		in.Status = &st
	}

	tx, err := h.Service.UpdateTransaction(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteTransaction removes a transaction row and recomputes its former
// account's balance.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// CARD HANDLERS
// =============================================================================

// GetClientCards returns a client's cards (masked numbers).
func (h *Handler) GetClientCards(w http.ResponseWriter, r *http.Request) {
	id := ledger.ClientID(chi.URLParam(r, "id"))
	cards, err := h.Service.CardsOf(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list cards", err)
		return
	}
	dtos := make([]CardDTO, len(cards))
	for i, c := range cards {
		dtos[i] = toCardDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// IssueCard issues a new card for a client.
func (h *Handler) IssueCard(w http.ResponseWriter, r *http.Request) {
	clientID := ledger.ClientID(chi.URLParam(r, "id"))

	var req IssueCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	card, err := h.Service.IssueCard(r.Context(), bank.IssueCardInput{
		ClientID:    clientID,
		Type:        ledger.CardType(req.CardType),
		Network:     ledger.CardNetwork(req.Network),
		CreditLimit: req.CreditLimit,
	})
	if err != nil {
		writeDomainError(w, "Failed to issue card", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardDTO(*card))
}

// SetCardStatus activates, suspends, or expires a card.
func (h *Handler) SetCardStatus(w http.ResponseWriter, r *http.Request) {
	clientID := ledger.ClientID(chi.URLParam(r, "id"))
	cardID := ledger.CardID(chi.URLParam(r, "cardID"))

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.SetCardStatus(r.Context(), cardID, ledger.CardStatus(req.Status), clientID); err != nil {
		writeDomainError(w, "Failed to update card status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// GetClientLoans returns a client's loans.
func (h *Handler) GetClientLoans(w http.ResponseWriter, r *http.Request) {
	id := ledger.ClientID(chi.URLParam(r, "id"))
	loans, err := h.Service.LoansOf(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list loans", err)
		return
	}
	dtos := make([]LoanDTO, len(loans))
	for i, l := range loans {
		dtos[i] = toLoanDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// OriginateLoan creates a loan and optionally disburses the principal.
func (h *Handler) OriginateLoan(w http.ResponseWriter, r *http.Request) {
	var req OriginateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	loan, err := h.Service.OriginateLoan(r.Context(), bank.OriginateLoanInput{
		ClientID:   ledger.ClientID(req.ClientID),
		Type:       ledger.LoanType(req.LoanType),
		Amount:     req.Amount,
		AnnualRate: req.AnnualRate,
		TermMonths: req.TermMonths,
		DisburseTo: ledger.AccountID(req.DisburseTo),
	})
	if err != nil {
		writeDomainError(w, "Failed to originate loan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(*loan))
}

// RepayLoan records one loan payment from an account.
func (h *Handler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	loanID := ledger.LoanID(chi.URLParam(r, "id"))

	var req RepayLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Service.RepayLoan(r.Context(), loanID, ledger.AccountID(req.FromAccountID), req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to record loan payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RecomputeAll refolds every account balance from its transaction set.
func (h *Handler) RecomputeAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RecomputeAllBalances(r.Context()); err != nil {
		writeDomainError(w, "Recompute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RecomputeAccount refolds one account's balance.
func (h *Handler) RecomputeAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	balance, err := h.Service.RecomputeAccountBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Recompute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RecomputeResultDTO{
		AccountID: string(id),
		Balance:   balance.Amount.StringFixed(2),
	})
}

// PostFees runs the monthly fee sweep.
func (h *Handler) PostFees(w http.ResponseWriter, r *http.Request) {
	posted, err := h.Service.PostMonthlyFees(r.Context())
	if err != nil {
		writeDomainError(w, "Fee run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posted": posted})
}

// PostInterest runs the monthly interest sweep.
func (h *Handler) PostInterest(w http.ResponseWriter, r *http.Request) {
	posted, err := h.Service.PostInterest(r.Context())
	if err != nil {
		writeDomainError(w, "Interest run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posted": posted})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
