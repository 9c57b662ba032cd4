package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/ledger-engine/ledger"
	"github.com/meridian/ledger-engine/ledger/store"
)

func TestRecompute_RepairsTamperedStoredBalance(t *testing.T) {
	// GIVEN: An account whose stored balance was written out of band
	// WHEN: Recomputing
	// THEN: The stored balance matches the fold again

	s := store.NewMemory()
	seedAccount(t, s, "acc-1", nil)
	ap := newTestApplier(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-1", "250"))
	require.NoError(t, err)

	// Simulate drift.
	require.NoError(t, s.UpdateAccountBalance(ctx, "acc-1", ledger.MustParseMoney("9999", "USD"), time.Now()))
	assert.True(t, storedBalance(t, s, "acc-1").Equal(amt("9999")))

	m := ledger.NewMaintainer(s)
	balance, err := m.Recompute(ctx, "acc-1")
	require.NoError(t, err)

	assert.True(t, balance.Amount.Equal(amt("250")))
	assert.True(t, storedBalance(t, s, "acc-1").Equal(amt("250")))
}

func TestRecompute_Idempotent(t *testing.T) {
	// GIVEN: A consistent account
	// WHEN: Recomputing twice with no intervening writes
	// THEN: Both runs store the same value

	s := store.NewMemory()
	seedAccount(t, s, "acc-1", nil)
	ap := newTestApplier(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-1", "80"))
	require.NoError(t, err)

	m := ledger.NewMaintainer(s)
	first, err := m.Recompute(ctx, "acc-1")
	require.NoError(t, err)
	second, err := m.Recompute(ctx, "acc-1")
	require.NoError(t, err)

	assert.True(t, first.Amount.Equal(second.Amount))
	assert.True(t, storedBalance(t, s, "acc-1").Equal(amt("80")))
}

// accountReadFails wraps a store and fails every account read.
type accountReadFails struct {
	ledger.Store
}

func (f *accountReadFails) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return nil, errors.New("simulated store failure")
}

func TestRecompute_AccountReadFailure_IsStoreError(t *testing.T) {
	// GIVEN: A store whose account reads fail
	// WHEN: Recomputing
	// THEN: The failure classifies as a store error, not a client error

	m := ledger.NewMaintainer(&accountReadFails{Store: store.NewMemory()})

	_, err := m.Recompute(context.Background(), "acc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrStore)
	assert.False(t, ledger.IsClientError(err))
	assert.False(t, ledger.IsNotFound(err))
}

func TestRecompute_MissingAccount(t *testing.T) {
	s := store.NewMemory()
	m := ledger.NewMaintainer(s)

	_, err := m.Recompute(context.Background(), "acc-404")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestRecomputeAll_SweepsEveryAccount(t *testing.T) {
	// GIVEN: Two accounts with drifted stored balances
	// WHEN: Running the audit sweep
	// THEN: Both are refolded

	s := store.NewMemory()
	seedAccount(t, s, "acc-1", nil)
	seedAccount(t, s, "acc-2", nil)
	ap := newTestApplier(s)
	ctx := context.Background()

	_, err := ap.Apply(ctx, deposit("acc-1", "10"))
	require.NoError(t, err)
	_, err = ap.Apply(ctx, deposit("acc-2", "20"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateAccountBalance(ctx, "acc-1", ledger.MustParseMoney("1", "USD"), time.Now()))
	require.NoError(t, s.UpdateAccountBalance(ctx, "acc-2", ledger.MustParseMoney("2", "USD"), time.Now()))

	m := ledger.NewMaintainer(s)
	require.NoError(t, m.RecomputeAll(ctx))

	assert.True(t, storedBalance(t, s, "acc-1").Equal(amt("10")))
	assert.True(t, storedBalance(t, s, "acc-2").Equal(amt("20")))
}
