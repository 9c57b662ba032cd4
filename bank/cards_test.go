package bank_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/ledger-engine/bank"
	"github.com/meridian/ledger-engine/ledger"
)

func TestIssueCard_DebitCard(t *testing.T) {
	// GIVEN: A client
	// WHEN: Issuing a Visa debit card
	// THEN: An active 16-digit card with generated security fields

	svc, _ := newTestService()
	client, _ := seedClientAccount(t, svc)

	card, err := svc.IssueCard(context.Background(), bank.IssueCardInput{
		ClientID: client.ID,
		Type:     ledger.CardDebit,
		Network:  ledger.NetworkVisa,
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.CardActive, card.Status)
	assert.Len(t, card.Number, 16)
	assert.Equal(t, "4", card.Number[:1])
	assert.Len(t, card.CVV, 3)
	assert.NotEmpty(t, card.ExpiryDate)
	assert.Nil(t, card.CreditLimit, "debit cards carry no limit")
}

func TestIssueCard_CreditCardCarriesLimit(t *testing.T) {
	svc, _ := newTestService()
	client, _ := seedClientAccount(t, svc)

	limit := amt("5000")
	card, err := svc.IssueCard(context.Background(), bank.IssueCardInput{
		ClientID:    client.ID,
		Type:        ledger.CardCredit,
		Network:     ledger.NetworkAmex,
		CreditLimit: &limit,
	})
	require.NoError(t, err)

	assert.Len(t, card.Number, 15)
	assert.Equal(t, "37", card.Number[:2])
	require.NotNil(t, card.CreditLimit)
	assert.True(t, card.CreditLimit.Equal(amt("5000")))
	require.NotNil(t, card.AvailableCredit)
	assert.True(t, card.AvailableCredit.Equal(amt("5000")))
}

func TestIssueCard_UnknownClient(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.IssueCard(context.Background(), bank.IssueCardInput{
		ClientID: "cli-404",
		Type:     ledger.CardDebit,
		Network:  ledger.NetworkVisa,
	})
	assert.ErrorIs(t, err, ledger.ErrClientNotFound)
}

func TestSetCardStatus_ScopedToTheOwningClient(t *testing.T) {
	// GIVEN: A card owned by one client
	// WHEN: Suspending it as the owner and as a stranger
	// THEN: The owner succeeds; the stranger gets not-found

	svc, _ := newTestService()
	owner, _ := seedClientAccount(t, svc)
	stranger, _ := seedClientAccount(t, svc)
	ctx := context.Background()

	card, err := svc.IssueCard(ctx, bank.IssueCardInput{
		ClientID: owner.ID,
		Type:     ledger.CardDebit,
		Network:  ledger.NetworkMastercard,
	})
	require.NoError(t, err)

	err = svc.SetCardStatus(ctx, card.ID, ledger.CardSuspended, stranger.ID)
	assert.ErrorIs(t, err, ledger.ErrCardNotFound)

	require.NoError(t, svc.SetCardStatus(ctx, card.ID, ledger.CardSuspended, owner.ID))

	cards, err := svc.CardsOf(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, ledger.CardSuspended, cards[0].Status)
}
