package bank_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/ledger-engine/bank"
	"github.com/meridian/ledger-engine/ledger"
)

// =============================================================================
// AMORTIZATION
// =============================================================================

func TestMonthlyPayment_ZeroRateIsStraightDivision(t *testing.T) {
	payment := bank.MonthlyPayment(amt("1200"), amt("0"), 12)
	assert.True(t, payment.Equal(amt("100")), "got %s", payment)
}

func TestMonthlyPayment_StandardAmortization(t *testing.T) {
	// 12000 at 5% over 12 months: the textbook payment is ~1027.29.
	payment := bank.MonthlyPayment(amt("12000"), amt("0.05"), 12)
	assert.True(t, payment.GreaterThan(amt("1027")), "got %s", payment)
	assert.True(t, payment.LessThan(amt("1028")), "got %s", payment)
}

// =============================================================================
// ORIGINATION
// =============================================================================

func TestOriginateLoan_WithoutDisbursement(t *testing.T) {
	// GIVEN: A client
	// WHEN: Originating a loan with no disbursement account
	// THEN: The loan is pending and no money moved

	svc, _ := newTestService()
	client, account := seedClientAccount(t, svc)
	ctx := context.Background()

	loan, err := svc.OriginateLoan(ctx, bank.OriginateLoanInput{
		ClientID:   client.ID,
		Type:       ledger.LoanPersonal,
		Amount:     amt("5000"),
		AnnualRate: amt("0.08"),
		TermMonths: 24,
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.LoanPending, loan.Status)
	assert.True(t, loan.MonthlyPayment.IsPositive())

	balance, err := svc.BalanceOf(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.IsZero())
}

func TestOriginateLoan_DisbursementDepositsThePrincipal(t *testing.T) {
	// GIVEN: A client with an empty account
	// WHEN: Originating with DisburseTo set
	// THEN: The loan is active and the principal landed as a deposit row

	svc, _ := newTestService()
	client, account := seedClientAccount(t, svc)
	ctx := context.Background()

	loan, err := svc.OriginateLoan(ctx, bank.OriginateLoanInput{
		ClientID:   client.ID,
		Type:       ledger.LoanAuto,
		Amount:     amt("15000"),
		AnnualRate: amt("0.06"),
		TermMonths: 48,
		DisburseTo: account.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.LoanActive, loan.Status)

	balance, err := svc.BalanceOf(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(amt("15000")))

	txs := svc.TransactionsOf(account.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TxDeposit, txs[0].Type)
	assert.Contains(t, txs[0].Description, string(loan.ID))
}

func TestOriginateLoan_FailedDisbursementRollsBackTheLoan(t *testing.T) {
	// GIVEN: A disbursement account that does not exist
	// WHEN: Originating
	// THEN: The error surfaces and no loan row survives

	svc, _ := newTestService()
	client, _ := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.OriginateLoan(ctx, bank.OriginateLoanInput{
		ClientID:   client.ID,
		Type:       ledger.LoanPersonal,
		Amount:     amt("1000"),
		TermMonths: 12,
		DisburseTo: "acc-404",
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	loans, err := svc.LoansOf(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestOriginateLoan_Rejections(t *testing.T) {
	svc, _ := newTestService()
	client, _ := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.OriginateLoan(ctx, bank.OriginateLoanInput{
		ClientID: client.ID, Type: ledger.LoanPersonal, Amount: amt("0"), TermMonths: 12,
	})
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)

	_, err = svc.OriginateLoan(ctx, bank.OriginateLoanInput{
		ClientID: client.ID, Type: ledger.LoanPersonal, Amount: amt("1000"), TermMonths: 0,
	})
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)

	_, err = svc.OriginateLoan(ctx, bank.OriginateLoanInput{
		ClientID: "cli-404", Type: ledger.LoanPersonal, Amount: amt("1000"), TermMonths: 12,
	})
	assert.ErrorIs(t, err, ledger.ErrClientNotFound)
}

// =============================================================================
// REPAYMENT
// =============================================================================

func TestRepayLoan_DebitsThePayingAccount(t *testing.T) {
	// GIVEN: An active loan and a funded account
	// WHEN: Making a payment
	// THEN: A payment row debits the account

	svc, _ := newTestService()
	client, account := seedClientAccount(t, svc)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account.ID, amt("500"), "")
	require.NoError(t, err)

	loan, err := svc.OriginateLoan(ctx, bank.OriginateLoanInput{
		ClientID:   client.ID,
		Type:       ledger.LoanPersonal,
		Amount:     amt("2000"),
		AnnualRate: amt("0.05"),
		TermMonths: 24,
	})
	require.NoError(t, err)

	tx, err := svc.RepayLoan(ctx, loan.ID, account.ID, amt("90"))
	require.NoError(t, err)
	assert.Equal(t, ledger.TxPayment, tx.Type)
	assert.True(t, tx.Amount.Amount.Equal(amt("-90")))

	balance, err := svc.BalanceOf(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(amt("410")))
}

func TestRepayLoan_UnknownLoan(t *testing.T) {
	svc, _ := newTestService()
	_, account := seedClientAccount(t, svc)

	_, err := svc.RepayLoan(context.Background(), "loan-404", account.ID, amt("90"))
	assert.ErrorIs(t, err, ledger.ErrLoanNotFound)
}
