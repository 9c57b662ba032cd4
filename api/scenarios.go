/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the database with recognizable demo data so the engine can be
  exercised without manual setup. Each scenario builds its rows through
  the ordinary service operations - deposits, withdrawals, transfers -
  so every seeded balance is a genuine fold over seeded transactions,
  never a hand-written number.

AVAILABLE SCENARIOS:
  retail:    Two clients with checking/savings accounts and a short
             transaction history ending in a cross-client transfer.
  overdraft: A checking account with an overdraft limit, drawn down
             close to its floor.

USAGE VIA API:
  POST /api/scenarios/load
  {"id": "retail"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: Error helpers
  - bank/service.go: Operations used to seed
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/meridian/ledger-engine/bank"
	"github.com/meridian/ledger-engine/ledger"
)

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "retail",
		Name:        "Retail banking",
		Description: "Two clients, checking and savings accounts, deposits and a transfer",
	},
	{
		ID:          "overdraft",
		Name:        "Overdraft",
		Description: "A checking account with an overdraft limit drawn near its floor",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"current": h.currentScenario})
}

// LoadScenario seeds the requested scenario's data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ID {
	case "retail":
		err = h.loadRetailScenario(r.Context())
	case "overdraft":
		err = h.loadOverdraftScenario(r.Context())
	default:
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ID})
}

func (h *Handler) loadRetailScenario(ctx context.Context) error {
	svc := h.Service

	alice, err := svc.CreateClient(ctx, ledger.Client{
		FirstName: "Alice", LastName: "Nguyen",
		Email: "alice.nguyen@example.com", Phone: "+1-415-555-0117",
		City: "San Francisco", State: "CA", Country: "US",
		EmploymentStatus: "employed", EmployerName: "Hexwave Labs", JobTitle: "Engineer",
		AnnualIncome: decimal.NewFromInt(145000),
		KYCStatus:    ledger.KYCApproved,
	})
	if err != nil {
		return err
	}
	bob, err := svc.CreateClient(ctx, ledger.Client{
		FirstName: "Bob", LastName: "Ferreira",
		Email: "bob.ferreira@example.com", Phone: "+1-212-555-0188",
		City: "New York", State: "NY", Country: "US",
		EmploymentStatus: "self-employed", JobTitle: "Consultant",
		AnnualIncome: decimal.NewFromInt(98000),
		KYCStatus:    ledger.KYCApproved,
	})
	if err != nil {
		return err
	}

	fee := decimal.NewFromInt(12)
	rate := decimal.NewFromFloat(0.042)

	aliceChecking, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: alice.ID, Type: ledger.AccountChecking, MonthlyFee: &fee,
	})
	if err != nil {
		return err
	}
	aliceSavings, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: alice.ID, Type: ledger.AccountSavings, InterestRate: &rate,
	})
	if err != nil {
		return err
	}
	bobChecking, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: bob.ID, Type: ledger.AccountChecking,
	})
	if err != nil {
		return err
	}

	seed := []struct {
		account ledger.AccountID
		amount  decimal.Decimal
		deposit bool
		desc    string
	}{
		{aliceChecking.ID, decimal.NewFromInt(5000), true, "Payroll"},
		{aliceChecking.ID, decimal.NewFromFloat(82.45), false, "Groceries"},
		{aliceSavings.ID, decimal.NewFromInt(2000), true, "Opening deposit"},
		{bobChecking.ID, decimal.NewFromInt(3200), true, "Invoice payment"},
		{bobChecking.ID, decimal.NewFromInt(400), false, "Rent share"},
	}
	for _, m := range seed {
		if m.deposit {
			_, err = svc.Deposit(ctx, m.account, m.amount, m.desc)
		} else {
			_, err = svc.Withdraw(ctx, m.account, m.amount, m.desc)
		}
		if err != nil {
			return err
		}
	}

	_, err = svc.Transfer(ctx, aliceChecking.ID, bobChecking.ID, decimal.NewFromInt(250), "Dinner split")
	return err
}

func (h *Handler) loadOverdraftScenario(ctx context.Context) error {
	svc := h.Service

	carol, err := svc.CreateClient(ctx, ledger.Client{
		FirstName: "Carol", LastName: "Okafor",
		Email: "carol.okafor@example.com",
		City:  "Austin", State: "TX", Country: "US",
		AnnualIncome: decimal.NewFromInt(72000),
		KYCStatus:    ledger.KYCApproved,
	})
	if err != nil {
		return err
	}

	overdraft := decimal.NewFromInt(500)
	checking, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: carol.ID, Type: ledger.AccountChecking, OverdraftLimit: &overdraft,
	})
	if err != nil {
		return err
	}

	if _, err := svc.Deposit(ctx, checking.ID, decimal.NewFromInt(300), "Opening deposit"); err != nil {
		return err
	}
	// Ends at -450, inside the -500 floor.
	if _, err := svc.Withdraw(ctx, checking.ID, decimal.NewFromInt(750), "Car repair"); err != nil {
		return err
	}
	return nil
}
