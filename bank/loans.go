// loans.go - Loan origination and repayment.
//
// Disbursement and repayment both move money through the ledger engine,
// so account balances stay a pure fold of transaction history: a
// disbursed loan shows up as a deposit row, a repayment as a payment row.
package bank

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meridian/ledger-engine/ledger"
)

// OriginateLoanInput describes a loan to create. When DisburseTo names an
// account, the principal is deposited there on approval.
type OriginateLoanInput struct {
	ClientID     ledger.ClientID
	Type         ledger.LoanType
	Amount       decimal.Decimal
	AnnualRate   decimal.Decimal // Fraction: 0.05 = 5%
	TermMonths   int
	DisburseTo   ledger.AccountID
}

// OriginateLoan creates a loan with an amortized monthly payment and
// optionally disburses the principal.
func (s *Service) OriginateLoan(ctx context.Context, in OriginateLoanInput) (*ledger.Loan, error) {
	if !in.Amount.IsPositive() || in.TermMonths <= 0 {
		return nil, ledger.ErrAmountNotPositive
	}
	client, err := s.store.GetClient(ctx, in.ClientID)
	if err != nil {
		return nil, ledger.StoreError("get client", err)
	}
	if client == nil {
		return nil, ledger.ErrClientNotFound
	}

	now := s.now()
	loan := ledger.Loan{
		ID:             ledger.LoanID(ledger.NewID("loan")),
		ClientID:       in.ClientID,
		Type:           in.Type,
		Amount:         in.Amount,
		InterestRate:   in.AnnualRate,
		TermMonths:     in.TermMonths,
		MonthlyPayment: MonthlyPayment(in.Amount, in.AnnualRate, in.TermMonths),
		Status:         ledger.LoanPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if in.DisburseTo != "" {
		loan.Status = ledger.LoanActive
	}
	if err := s.store.InsertLoan(ctx, loan); err != nil {
		return nil, ledger.StoreError("insert loan", err)
	}

	if in.DisburseTo != "" {
		if _, err := s.applier.Apply(ctx, ledger.ApplyInput{
			AccountID:   in.DisburseTo,
			Type:        ledger.TxDeposit,
			Amount:      ledger.NewMoney(in.Amount, ""),
			Description: "Loan disbursement " + string(loan.ID),
		}); err != nil {
			// Roll the loan row back; the deposit never happened.
			s.store.DeleteLoan(ctx, loan.ID) //nolint:errcheck
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"loan": loan.ID, "client": in.ClientID, "amount": in.Amount.String(), "term": in.TermMonths,
	}).Info("loan originated")
	s.refresh(ctx)
	return &loan, nil
}

// RepayLoan records one payment against a loan from the given account.
func (s *Service) RepayLoan(ctx context.Context, loanID ledger.LoanID, fromAccount ledger.AccountID, amount decimal.Decimal) (*ledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrAmountNotPositive
	}
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	tx, err := s.applier.Apply(ctx, ledger.ApplyInput{
		AccountID:   fromAccount,
		Type:        ledger.TxPayment,
		Amount:      ledger.NewMoney(amount.Neg(), ""),
		Description: "Loan payment " + string(loan.ID),
	})
	if err != nil {
		return nil, err
	}
	s.refresh(ctx)
	return tx, nil
}

// LoansOf returns the client's loans.
func (s *Service) LoansOf(ctx context.Context, clientID ledger.ClientID) ([]ledger.Loan, error) {
	loans, err := s.store.LoansByClient(ctx, clientID)
	if err != nil {
		return nil, ledger.StoreError("list loans", err)
	}
	return loans, nil
}

func (s *Service) findLoan(ctx context.Context, id ledger.LoanID) (*ledger.Loan, error) {
	loans, err := s.store.ListLoans(ctx)
	if err != nil {
		return nil, ledger.StoreError("list loans", err)
	}
	for i := range loans {
		if loans[i].ID == id {
			return &loans[i], nil
		}
	}
	return nil, ledger.ErrLoanNotFound
}

// MonthlyPayment computes the standard amortization payment for principal
// p at annual rate r over n months, rounded to cents:
//
//	p * i / (1 - (1+i)^-n),  i = r/12
//
// A zero rate degenerates to straight division.
func MonthlyPayment(p, r decimal.Decimal, n int) decimal.Decimal {
	months := decimal.NewFromInt(int64(n))
	if r.IsZero() {
		return p.Div(months).Round(2)
	}
	i := r.Div(decimal.NewFromInt(12))
	onePlusI := decimal.NewFromInt(1).Add(i)
	// (1+i)^n with decimal exponentiation
	pow := onePlusI.Pow(months)
	numerator := p.Mul(i).Mul(pow)
	denominator := pow.Sub(decimal.NewFromInt(1))
	return numerator.Div(denominator).Round(2)
}
