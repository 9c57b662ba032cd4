/*
scenarios_test.go - Demo scenario tests

Verifies each scenario seeds the expected state through ordinary service
operations, so every seeded balance is a genuine fold over seeded rows.
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_ListAndCurrent(t *testing.T) {
	router := newTestRouter()

	var list []ScenarioDTO
	rec := do(t, router, http.MethodGet, "/api/scenarios", nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list, 2)
	assert.Equal(t, "retail", list[0].ID)
	assert.Equal(t, "overdraft", list[1].ID)

	var current map[string]string
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil, &current)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, current["current"], "nothing loaded yet")
}

func TestScenarios_LoadUnknownIs404(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/api/scenarios/load",
		map[string]string{"id": "casino"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarios_RetailSeedsConsistentBalances(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading the retail scenario
	// THEN: Two clients, three accounts, and every stored balance matches
	//       the fold over its seeded transactions

	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/api/scenarios/load",
		map[string]string{"id": "retail"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var clients []ClientDTO
	do(t, router, http.MethodGet, "/api/clients", nil, &clients)
	require.Len(t, clients, 2)

	var accounts []AccountDTO
	do(t, router, http.MethodGet, "/api/accounts", nil, &accounts)
	require.Len(t, accounts, 3)

	// Alice checking: 5000 - 82.45 - 250 transfer = 4667.55
	// Alice savings: 2000. Bob checking: 3200 - 400 + 250 = 3050.
	wantByBalance := map[string]bool{"4667.55": false, "2000.00": false, "3050.00": false}
	for _, a := range accounts {
		var balance BalanceDTO
		do(t, router, http.MethodGet, "/api/accounts/"+a.ID+"/balance", nil, &balance)
		assert.True(t, balance.Consistent, "account %s stored balance drifted from the fold", a.AccountNumber)
		if _, ok := wantByBalance[balance.Balance]; ok {
			wantByBalance[balance.Balance] = true
		}
	}
	for want, seen := range wantByBalance {
		assert.True(t, seen, "no account ended at %s", want)
	}

	var current map[string]string
	do(t, router, http.MethodGet, "/api/scenarios/current", nil, &current)
	assert.Equal(t, "retail", current["current"])
}

func TestScenarios_OverdraftEndsInsideTheFloor(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading the overdraft scenario
	// THEN: The account sits at -450, within its -500 floor, and a further
	//       100 withdrawal is rejected

	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/api/scenarios/load",
		map[string]string{"id": "overdraft"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var accounts []AccountDTO
	do(t, router, http.MethodGet, "/api/accounts", nil, &accounts)
	require.Len(t, accounts, 1)
	assert.Equal(t, "-450.00", accounts[0].Balance)
	assert.Equal(t, "500", accounts[0].OverdraftLimit)

	rec = do(t, router, http.MethodPost, "/api/accounts/"+accounts[0].ID+"/withdraw",
		map[string]any{"amount": "100"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
