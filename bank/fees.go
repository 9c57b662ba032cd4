// fees.go - Scheduled fee and interest posting.
//
// Both postings are ordinary ledger transactions, applied through the
// same validated path as user-initiated movements, so the fold invariant
// holds for them too. The api scheduler runs these on a cron.
package bank

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meridian/ledger-engine/ledger"
)

// PostMonthlyFees debits each active account's monthly fee. Accounts that
// cannot cover the fee are skipped and logged rather than overdrawn past
// their floor; the sweep continues. Returns the number of fees posted.
func (s *Service) PostMonthlyFees(ctx context.Context) (int, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return 0, ledger.StoreError("list accounts", err)
	}

	posted := 0
	for _, a := range accounts {
		if a.Status != ledger.AccountActive || a.MonthlyFee == nil || !a.MonthlyFee.IsPositive() {
			continue
		}
		fee := a.MonthlyFee.Round(2)
		_, err := s.applier.Apply(ctx, ledger.ApplyInput{
			AccountID:   a.ID,
			Type:        ledger.TxFee,
			Amount:      ledger.NewMoney(fee.Neg(), a.Currency),
			Description: "Monthly maintenance fee",
		})
		switch {
		case err == nil:
			posted++
		case errors.Is(err, ledger.ErrInsufficientFunds):
			s.log.WithField("account", a.ID).Warn("monthly fee skipped: insufficient funds")
		default:
			return posted, err
		}
	}
	s.log.WithField("posted", posted).Info("monthly fee run complete")
	s.refresh(ctx)
	return posted, nil
}

// PostInterest credits one month of interest to each active interest-
// bearing account with a positive balance. Returns the number of credits.
func (s *Service) PostInterest(ctx context.Context) (int, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return 0, ledger.StoreError("list accounts", err)
	}

	posted := 0
	for _, a := range accounts {
		if a.Status != ledger.AccountActive || a.InterestRate == nil || !a.InterestRate.IsPositive() {
			continue
		}
		txs, err := s.store.TransactionsByAccount(ctx, a.ID)
		if err != nil {
			return posted, ledger.StoreError("load transactions", err)
		}
		balance := ledger.ComputeBalance(a.ID, txs)
		if !balance.IsPositive() {
			continue
		}
		interest := balance.Mul(*a.InterestRate).Div(decimal.NewFromInt(12)).Round(2)
		if !interest.IsPositive() {
			continue
		}
		if _, err := s.applier.Apply(ctx, ledger.ApplyInput{
			AccountID:   a.ID,
			Type:        ledger.TxDeposit,
			Amount:      ledger.NewMoney(interest, a.Currency),
			Description: "Monthly interest",
		}); err != nil {
			return posted, err
		}
		posted++
	}
	s.log.WithFields(logrus.Fields{"posted": posted}).Info("interest run complete")
	s.refresh(ctx)
	return posted, nil
}
