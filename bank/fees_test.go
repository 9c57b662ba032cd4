package bank_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/ledger-engine/bank"
	"github.com/meridian/ledger-engine/ledger"
)

func TestPostMonthlyFees_DebitsActiveFeeBearingAccounts(t *testing.T) {
	// GIVEN: One account with a 12 fee and one with none
	// WHEN: Running the fee sweep
	// THEN: Exactly one fee row posts

	svc, _ := newTestService()
	client, plain := seedClientAccount(t, svc)
	ctx := context.Background()

	fee := amt("12")
	charged, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID:   client.ID,
		Type:       ledger.AccountChecking,
		MonthlyFee: &fee,
	})
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, charged.ID, amt("100"), "")
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, plain.ID, amt("100"), "")
	require.NoError(t, err)

	posted, err := svc.PostMonthlyFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, posted)

	balance, err := svc.BalanceOf(ctx, charged.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(amt("88")))

	txs := svc.TransactionsOf(charged.ID)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TxFee, txs[1].Type)

	untouched, err := svc.BalanceOf(ctx, plain.ID)
	require.NoError(t, err)
	assert.True(t, untouched.Amount.Equal(amt("100")))
}

func TestPostMonthlyFees_SkipsInsufficientWithoutAborting(t *testing.T) {
	// GIVEN: A broke fee-bearing account and a funded one
	// WHEN: Running the sweep
	// THEN: The broke account is skipped; the funded one still pays

	svc, _ := newTestService()
	client, _ := seedClientAccount(t, svc)
	ctx := context.Background()

	fee := amt("12")
	broke, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: client.ID, Type: ledger.AccountChecking, MonthlyFee: &fee,
	})
	require.NoError(t, err)
	funded, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: client.ID, Type: ledger.AccountChecking, MonthlyFee: &fee,
	})
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, funded.ID, amt("100"), "")
	require.NoError(t, err)

	posted, err := svc.PostMonthlyFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, posted)

	balance, err := svc.BalanceOf(ctx, broke.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.IsZero(), "skipped account stays at zero")
}

func TestPostInterest_CreditsOneMonthAtTheAnnualRate(t *testing.T) {
	// GIVEN: A savings account holding 1000 at 4.2% annual
	// WHEN: Running the interest sweep
	// THEN: 1000 * 0.042 / 12 = 3.50 is credited

	svc, _ := newTestService()
	client, _ := seedClientAccount(t, svc)
	ctx := context.Background()

	rate := amt("0.042")
	savings, err := svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID:     client.ID,
		Type:         ledger.AccountSavings,
		InterestRate: &rate,
	})
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, savings.ID, amt("1000"), "")
	require.NoError(t, err)

	posted, err := svc.PostInterest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, posted)

	balance, err := svc.BalanceOf(ctx, savings.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(amt("1003.50")), "got %s", balance.Amount)
}

func TestPostInterest_SkipsEmptyAndRatelessAccounts(t *testing.T) {
	// GIVEN: A rateless account with money and a rated account at zero
	// WHEN: Running the sweep
	// THEN: Nothing posts

	svc, _ := newTestService()
	client, rateless := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, rateless.ID, amt("1000"), "")
	require.NoError(t, err)

	rate := amt("0.042")
	_, err = svc.OpenAccount(ctx, bank.OpenAccountInput{
		ClientID: client.ID, Type: ledger.AccountSavings, InterestRate: &rate,
	})
	require.NoError(t, err)

	posted, err := svc.PostInterest(ctx)
	require.NoError(t, err)
	assert.Zero(t, posted)
}
