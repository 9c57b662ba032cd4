package bank_test

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/ledger-engine/bank"
	"github.com/meridian/ledger-engine/ledger"
	"github.com/meridian/ledger-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService() (*bank.Service, ledger.Store) {
	s := store.NewMemory()
	return bank.NewService(s, testLogger()), s
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedClientAccount creates a client with one active checking account and
// returns both.
func seedClientAccount(t *testing.T, svc *bank.Service) (*ledger.Client, *ledger.Account) {
	t.Helper()
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, ledger.Client{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	})
	require.NoError(t, err)

	account, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: client.ID,
		Type:     ledger.AccountChecking,
	})
	require.NoError(t, err)
	return client, account
}

// =============================================================================
// CLIENT AND ACCOUNT LIFECYCLE
// =============================================================================

func TestCreateClient_Defaults(t *testing.T) {
	// GIVEN: A client request with no KYC status or risk level
	// WHEN: Creating the client
	// THEN: An ID is assigned and the profile defaults are filled

	svc, _ := newTestService()

	client, err := svc.CreateClient(context.Background(), ledger.Client{
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, client.ID)
	assert.Equal(t, ledger.KYCPending, client.KYCStatus)
	assert.Equal(t, ledger.RiskLow, client.RiskLevel)
	assert.False(t, client.CreatedAt.IsZero())
}

func TestOpenAccount_ZeroBalanceAndClientBackfill(t *testing.T) {
	// GIVEN: A client with no accounts
	// WHEN: Opening their first account
	// THEN: The account starts at zero and its number is copied onto the
	//       client profile

	svc, s := newTestService()
	client, account := seedClientAccount(t, svc)

	assert.Equal(t, ledger.AccountActive, account.Status)
	assert.Equal(t, "USD", account.Currency, "currency defaults to USD")
	assert.True(t, account.Balance.Amount.IsZero())
	assert.NotEmpty(t, account.Number)

	stored, err := s.GetClient(context.Background(), client.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, account.Number, stored.AccountNumber)
}

func TestOpenAccount_Rejections(t *testing.T) {
	svc, _ := newTestService()
	client, _ := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.OpenAccount(ctx, bank.OpenAccountInput{ClientID: client.ID, Type: "offshore"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountType)

	_, err = svc.OpenAccount(ctx, bank.OpenAccountInput{ClientID: "cli-404", Type: ledger.AccountChecking})
	assert.ErrorIs(t, err, ledger.ErrClientNotFound)
}

func TestSetAccountStatus_FrozenBlocksMovements(t *testing.T) {
	// GIVEN: A funded account
	// WHEN: Freezing it
	// THEN: Withdrawals are rejected until it is unfrozen

	svc, _ := newTestService()
	_, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account.ID, amt("200"), "opening")
	require.NoError(t, err)

	_, err = svc.SetAccountStatus(ctx, account.ID, ledger.AccountFrozen)
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, account.ID, amt("50"), "blocked")
	assert.ErrorIs(t, err, ledger.ErrAccountFrozen)

	_, err = svc.SetAccountStatus(ctx, account.ID, ledger.AccountActive)
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, account.ID, amt("50"), "allowed")
	assert.NoError(t, err)
}

// =============================================================================
// MOVEMENTS AND THE QUERY SURFACE
// =============================================================================

func TestDepositWithdraw_BalanceOfIsAFreshFold(t *testing.T) {
	// GIVEN: Deposit 500, withdraw 120
	// WHEN: Asking for the balance
	// THEN: The fold says 380, matching the stored column

	svc, s := newTestService()
	_, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account.ID, amt("500"), "payday")
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, account.ID, amt("120"), "groceries")
	require.NoError(t, err)

	balance, err := svc.BalanceOf(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(amt("380")))

	stored, err := s.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Amount.Equal(amt("380")))
}

func TestMovements_RejectNonPositiveMagnitudes(t *testing.T) {
	svc, _ := newTestService()
	_, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account.ID, amt("0"), "")
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)

	_, err = svc.Withdraw(ctx, account.ID, amt("-5"), "")
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)
}

func TestTransfer_MovesMoneyBetweenClients(t *testing.T) {
	svc, _ := newTestService()
	_, from := seedClientAccount(t, svc)
	_, to := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, from.ID, amt("500"), "")
	require.NoError(t, err)

	result, err := svc.Transfer(ctx, from.ID, to.ID, amt("125"), "rent")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Reference)

	fromBalance, err := svc.BalanceOf(ctx, from.ID)
	require.NoError(t, err)
	toBalance, err := svc.BalanceOf(ctx, to.ID)
	require.NoError(t, err)
	assert.True(t, fromBalance.Amount.Equal(amt("375")))
	assert.True(t, toBalance.Amount.Equal(amt("125")))
}

func TestProjection_RefreshedAfterEveryMovement(t *testing.T) {
	// GIVEN: A service with an empty projection
	// WHEN: Depositing
	// THEN: The cache already reflects the write with no explicit Refresh

	svc, _ := newTestService()
	_, account := seedClientAccount(t, svc)

	_, err := svc.Deposit(context.Background(), account.ID, amt("75"), "")
	require.NoError(t, err)

	assert.True(t, svc.Projection().BalanceOf(account.ID).Equal(amt("75")))
	assert.Len(t, svc.TransactionsOf(account.ID), 1)
}

// =============================================================================
// TRANSACTION EDITS - recompute must follow every edit
// =============================================================================

func TestUpdateTransaction_RecomputesBalance(t *testing.T) {
	// GIVEN: Deposits of 100 and 20 (balance 120)
	// WHEN: Editing the 20 deposit to 50
	// THEN: The stored balance is 150 immediately after the edit

	svc, s := newTestService()
	_, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account.ID, amt("100"), "first")
	require.NoError(t, err)
	second, err := svc.Deposit(ctx, account.ID, amt("20"), "second")
	require.NoError(t, err)

	newAmount := amt("50")
	updated, err := svc.UpdateTransaction(ctx, second.ID, bank.UpdateTransactionInput{Amount: &newAmount})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Amount.Equal(amt("50")))

	stored, err := s.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Amount.Equal(amt("150")))
}

func TestDeleteTransaction_RecomputesBalance(t *testing.T) {
	// GIVEN: Deposit 200, withdraw 80 (balance 120)
	// WHEN: Deleting the withdrawal
	// THEN: The stored balance folds back to 200

	svc, s := newTestService()
	_, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account.ID, amt("200"), "")
	require.NoError(t, err)
	withdrawal, err := svc.Withdraw(ctx, account.ID, amt("80"), "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, withdrawal.ID))

	stored, err := s.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Amount.Equal(amt("200")))
}

func TestUpdateTransaction_MissingAndInvalid(t *testing.T) {
	svc, _ := newTestService()
	_, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.UpdateTransaction(ctx, "tx-404", bank.UpdateTransactionInput{})
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	tx, err := svc.Deposit(ctx, account.ID, amt("10"), "")
	require.NoError(t, err)

	bad := ledger.TransactionType("wire")
	_, err = svc.UpdateTransaction(ctx, tx.ID, bank.UpdateTransactionInput{Type: &bad})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransactionType)
}

// =============================================================================
// RECOMPUTE SURFACE
// =============================================================================

func TestRecomputeAccountBalance_RepairsDrift(t *testing.T) {
	// GIVEN: A stored balance written out of band
	// WHEN: Recomputing through the service
	// THEN: Both the column and the projection show the fold again

	svc, s := newTestService()
	_, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account.ID, amt("250"), "")
	require.NoError(t, err)

	require.NoError(t, s.UpdateAccountBalance(ctx, account.ID, ledger.MustParseMoney("9999", "USD"), account.UpdatedAt))

	balance, err := svc.RecomputeAccountBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(amt("250")))
	assert.True(t, svc.Projection().BalanceOf(account.ID).Equal(amt("250")))
}
