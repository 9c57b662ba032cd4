// cards.go - Card issuance and management.
//
// Cards are profile rows, not a spending instrument in this engine: card
// activity still flows through the ledger as ordinary transactions on the
// client's accounts.
package bank

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meridian/ledger-engine/ledger"
)

var cardPrefixes = map[ledger.CardNetwork]struct {
	prefix string
	length int
}{
	ledger.NetworkVisa:       {"4", 16},
	ledger.NetworkMastercard: {"5", 16},
	ledger.NetworkAmex:       {"37", 15},
}

// IssueCardInput describes a card to issue. Number, expiry, and CVV are
// generated.
type IssueCardInput struct {
	ClientID    ledger.ClientID
	Type        ledger.CardType
	Network     ledger.CardNetwork
	CreditLimit *decimal.Decimal
}

// IssueCard creates an active card for an existing client.
func (s *Service) IssueCard(ctx context.Context, in IssueCardInput) (*ledger.Card, error) {
	client, err := s.store.GetClient(ctx, in.ClientID)
	if err != nil {
		return nil, ledger.StoreError("get client", err)
	}
	if client == nil {
		return nil, ledger.ErrClientNotFound
	}
	spec, ok := cardPrefixes[in.Network]
	if !ok {
		return nil, errors.New("unknown card network: " + string(in.Network))
	}

	number, err := GenerateCardNumber(spec.prefix, spec.length)
	if err != nil {
		return nil, err
	}
	cvv, err := GenerateCVV()
	if err != nil {
		return nil, err
	}

	now := s.now()
	card := ledger.Card{
		ID:         ledger.CardID(ledger.NewID("card")),
		ClientID:   in.ClientID,
		Number:     number,
		Type:       in.Type,
		Network:    in.Network,
		ExpiryDate: GenerateExpiryDate(now),
		CVV:        cvv,
		Status:     ledger.CardActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Type == ledger.CardCredit && in.CreditLimit != nil {
		limit := *in.CreditLimit
		card.CreditLimit = &limit
		available := limit
		card.AvailableCredit = &available
	}

	if err := s.store.InsertCard(ctx, card); err != nil {
		return nil, ledger.StoreError("insert card", err)
	}
	s.log.WithFields(logrus.Fields{"card": card.ID, "client": in.ClientID, "network": in.Network}).Info("card issued")
	s.refresh(ctx)
	return &card, nil
}

// CardsOf returns the client's cards.
func (s *Service) CardsOf(ctx context.Context, clientID ledger.ClientID) ([]ledger.Card, error) {
	cards, err := s.store.CardsByClient(ctx, clientID)
	if err != nil {
		return nil, ledger.StoreError("list cards", err)
	}
	return cards, nil
}

// SetCardStatus activates, suspends, or expires a card.
func (s *Service) SetCardStatus(ctx context.Context, id ledger.CardID, status ledger.CardStatus, clientID ledger.ClientID) error {
	cards, err := s.store.CardsByClient(ctx, clientID)
	if err != nil {
		return ledger.StoreError("list cards", err)
	}
	for _, card := range cards {
		if card.ID == id {
			card.Status = status
			card.UpdatedAt = s.now()
			if err := s.store.UpdateCard(ctx, card); err != nil {
				return ledger.StoreError("update card", err)
			}
			s.refresh(ctx)
			return nil
		}
	}
	return ledger.ErrCardNotFound
}

// DeleteCard removes a card row.
func (s *Service) DeleteCard(ctx context.Context, id ledger.CardID) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return ledger.StoreError("delete card", err)
	}
	s.refresh(ctx)
	return nil
}
