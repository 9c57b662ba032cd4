package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/ledger-engine/ledger"
	"github.com/meridian/ledger-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestOrchestrator(s ledger.Store) *ledger.Orchestrator {
	return ledger.NewOrchestrator(s, ledger.NewAccountLocks())
}

// creditLegFails wraps a store and fails any insert of a credit transfer
// leg, simulating a crash in the window between the two legs.
type creditLegFails struct {
	ledger.Store
}

func (f *creditLegFails) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	if tx.Type == ledger.TxTransfer && strings.HasSuffix(tx.Reference, "-C") {
		return errors.New("simulated store failure")
	}
	return f.Store.InsertTransaction(ctx, tx)
}

// balanceWriteFails wraps a store and fails balance writes for one account,
// simulating a partial store failure after both legs committed.
type balanceWriteFails struct {
	ledger.Store
	account ledger.AccountID
}

func (f *balanceWriteFails) UpdateAccountBalance(ctx context.Context, id ledger.AccountID, balance ledger.Money, at time.Time) error {
	if id == f.account {
		return errors.New("simulated store failure")
	}
	return f.Store.UpdateAccountBalance(ctx, id, balance, at)
}

// =============================================================================
// TRANSFER TESTS
// =============================================================================

func TestTransfer_PairedLegs_BalancesAndReferences(t *testing.T) {
	// GIVEN: Source at 380 (deposit 500, withdraw 120), empty destination
	// WHEN: Transferring 100
	// THEN: Source 280, destination 100, two legs sharing a reference
	//       prefix with -D and -C suffixes

	s := store.NewMemory()
	seedAccount(t, s, "acc-a", nil)
	seedAccount(t, s, "acc-b", nil)
	ap := newTestApplier(s)
	o := newTestOrchestrator(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-a", "500"))
	require.NoError(t, err)
	_, err = ap.Apply(ctx, withdrawal("acc-a", "-120"))
	require.NoError(t, err)

	result, err := o.Transfer(ctx, "acc-a", "acc-b", ledger.MustParseMoney("100", ""), "rent")
	require.NoError(t, err)

	assert.True(t, storedBalance(t, s, "acc-a").Equal(amt("280")))
	assert.True(t, storedBalance(t, s, "acc-b").Equal(amt("100")))

	debit, err := s.GetTransaction(ctx, result.DebitTxID)
	require.NoError(t, err)
	credit, err := s.GetTransaction(ctx, result.CreditTxID)
	require.NoError(t, err)

	assert.Equal(t, result.Reference+"-D", debit.Reference)
	assert.Equal(t, result.Reference+"-C", credit.Reference)
	assert.True(t, debit.Amount.Amount.Equal(amt("-100")))
	assert.True(t, credit.Amount.Amount.Equal(amt("100")))
	assert.Contains(t, debit.Description, "Transfer to "+"ACC"+"acc-b")
	assert.Contains(t, credit.Description, "Transfer from "+"ACC"+"acc-a")
	assert.Equal(t, debit.RecipientAccount, credit.RecipientAccount)
	assert.Equal(t, debit.SenderAccount, credit.SenderAccount)
}

func TestTransfer_SameAccount_Rejected(t *testing.T) {
	s := store.NewMemory()
	seedAccount(t, s, "acc-a", nil)
	o := newTestOrchestrator(s)

	_, err := o.Transfer(context.Background(), "acc-a", "acc-a", ledger.MustParseMoney("10", ""), "loop")
	assert.ErrorIs(t, err, ledger.ErrSameAccount)
}

func TestTransfer_NonPositiveAmount_Rejected(t *testing.T) {
	s := store.NewMemory()
	seedAccount(t, s, "acc-a", nil)
	seedAccount(t, s, "acc-b", nil)
	o := newTestOrchestrator(s)

	_, err := o.Transfer(context.Background(), "acc-a", "acc-b", ledger.MustParseMoney("0", ""), "")
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)

	_, err = o.Transfer(context.Background(), "acc-a", "acc-b", ledger.MustParseMoney("-5", ""), "")
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)
}

func TestTransfer_InsufficientSource_NoSideEffects(t *testing.T) {
	// GIVEN: Source holding 50
	// WHEN: Transferring 100
	// THEN: Rejected before any write; both histories untouched

	s := store.NewMemory()
	seedAccount(t, s, "acc-a", nil)
	seedAccount(t, s, "acc-b", nil)
	ap := newTestApplier(s)
	o := newTestOrchestrator(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-a", "50"))
	require.NoError(t, err)

	_, err = o.Transfer(ctx, "acc-a", "acc-b", ledger.MustParseMoney("100", ""), "too much")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	txsA, _ := s.TransactionsByAccount(ctx, "acc-a")
	txsB, _ := s.TransactionsByAccount(ctx, "acc-b")
	assert.Len(t, txsA, 1)
	assert.Empty(t, txsB)
}

func TestTransfer_FrozenDestination_Rejected(t *testing.T) {
	// GIVEN: A funded source and a frozen destination
	// WHEN: Transferring
	// THEN: Rejected with ErrAccountFrozen before any write

	s := store.NewMemory()
	seedAccount(t, s, "acc-a", nil)
	ctx := context.Background()

	dest := seedAccount(t, s, "acc-b", nil)
	dest.Status = ledger.AccountFrozen
	require.NoError(t, s.UpdateAccount(ctx, dest))

	ap := newTestApplier(s)
	o := newTestOrchestrator(s)
	_, err := ap.Apply(ctx, deposit("acc-a", "500"))
	require.NoError(t, err)

	_, err = o.Transfer(ctx, "acc-a", "acc-b", ledger.MustParseMoney("100", ""), "")
	assert.ErrorIs(t, err, ledger.ErrAccountFrozen)
}

func TestTransfer_AtomicStore_CommitsBothLegsTogether(t *testing.T) {
	// GIVEN: A store with transaction support
	// WHEN: Transferring
	// THEN: Both legs and both recomputed balances are visible

	s := store.NewTxMemory()
	seedAccount(t, s, "acc-a", nil)
	seedAccount(t, s, "acc-b", nil)
	ap := newTestApplier(s)
	o := newTestOrchestrator(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-a", "500"))
	require.NoError(t, err)

	_, err = o.Transfer(ctx, "acc-a", "acc-b", ledger.MustParseMoney("200", ""), "atomic")
	require.NoError(t, err)

	assert.True(t, storedBalance(t, s, "acc-a").Equal(amt("300")))
	assert.True(t, storedBalance(t, s, "acc-b").Equal(amt("200")))
}

func TestTransfer_PartialFailure_CompensatesAndReports(t *testing.T) {
	// GIVEN: A plain row store whose credit-leg insert fails
	// WHEN: Transferring 100 from a source holding 500
	// THEN: PartialTransferError with the reversal recorded; the source's
	//       stored balance matches its persisted rows (back to 500)

	inner := store.NewMemory()
	s := &creditLegFails{Store: inner}
	seedAccount(t, inner, "acc-a", nil)
	seedAccount(t, inner, "acc-b", nil)
	ap := newTestApplier(inner)
	o := newTestOrchestrator(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-a", "500"))
	require.NoError(t, err)

	_, err = o.Transfer(ctx, "acc-a", "acc-b", ledger.MustParseMoney("100", ""), "doomed")
	require.Error(t, err)

	var perr *ledger.PartialTransferError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Reversed, "debit should have been compensated")
	assert.NoError(t, perr.ReversalErr)
	assert.NotEmpty(t, perr.DebitTxID)

	// Debit and its reversal both persisted; the fold nets to the original.
	txsA, err := inner.TransactionsByAccount(ctx, "acc-a")
	require.NoError(t, err)
	assert.Len(t, txsA, 3, "deposit + debit + reversal")
	assert.True(t, storedBalance(t, inner, "acc-a").Equal(amt("500")))

	// Destination never saw a row.
	txsB, err := inner.TransactionsByAccount(ctx, "acc-b")
	require.NoError(t, err)
	assert.Empty(t, txsB)

	// The reversal row is linked to the transfer by reference.
	var reversal *ledger.Transaction
	for i := range txsA {
		if strings.HasSuffix(txsA[i].Reference, "-R") {
			reversal = &txsA[i]
		}
	}
	require.NotNil(t, reversal)
	assert.Equal(t, perr.Reference+"-R", reversal.Reference)
	assert.True(t, reversal.Amount.Amount.Equal(amt("100")))
}

func TestTransfer_RecomputeFailureOnOneAccount_StillRefoldsTheOther(t *testing.T) {
	// GIVEN: A plain row store whose balance write fails for the source
	// WHEN: Transferring 100 (both legs persist)
	// THEN: The transfer reports the store failure, but the destination's
	//       stored balance was still refolded to match its rows

	inner := store.NewMemory()
	s := &balanceWriteFails{Store: inner, account: "acc-a"}
	seedAccount(t, inner, "acc-a", nil)
	seedAccount(t, inner, "acc-b", nil)
	ap := newTestApplier(inner)
	o := newTestOrchestrator(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-a", "500"))
	require.NoError(t, err)

	_, err = o.Transfer(ctx, "acc-a", "acc-b", ledger.MustParseMoney("100", ""), "rent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrStore)

	// Both legs committed before the balance write failed.
	txsA, err := inner.TransactionsByAccount(ctx, "acc-a")
	require.NoError(t, err)
	txsB, err := inner.TransactionsByAccount(ctx, "acc-b")
	require.NoError(t, err)
	assert.Len(t, txsA, 2, "deposit + debit leg")
	assert.Len(t, txsB, 1, "credit leg")

	// The destination's recompute ran despite the source's failure.
	assert.True(t, storedBalance(t, inner, "acc-b").Equal(amt("100")))
}
