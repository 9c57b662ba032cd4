/*
balance.go - Balance calculation

PURPOSE:
  Computes an account's balance as a fold over its transaction set. This
  is the central invariant of the whole engine:

      balance(account) == sum(t.Amount for t in transactions(account))

  The stored Balance field on Account is only ever a materialized cache of
  this fold (see maintain.go). Any code that needs a balance to make a
  WRITE decision must call the fold over freshly-loaded transactions, not
  read the cached field, so that two concurrent debits cannot both observe
  a stale sufficient balance.

PRECISION:
  All arithmetic is decimal.Decimal. Folding thousands of small amounts in
  binary floating point drifts by pennies; decimal arithmetic does not.

SEE ALSO:
  - maintain.go: Persists the fold as the account's stored balance
  - projection.go: Running-balance views over cached transactions
*/
package ledger

import "github.com/shopspring/decimal"

// ComputeBalance folds the signed amounts of the transactions belonging to
// accountID. Pure and deterministic: no I/O, no side effects. Transactions
// for other accounts are ignored, so callers may pass an unfiltered set.
func ComputeBalance(accountID AccountID, txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.AccountID != accountID {
			continue
		}
		sum = sum.Add(tx.Amount.Amount)
	}
	return sum
}

// RunningBalances returns, for each transaction of accountID in the given
// (already ordered) sequence, the balance after that transaction. The
// returned slice is parallel to the filtered transaction list.
func RunningBalances(accountID AccountID, txs []Transaction) []decimal.Decimal {
	var out []decimal.Decimal
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.AccountID != accountID {
			continue
		}
		sum = sum.Add(tx.Amount.Amount)
		out = append(out, sum)
	}
	return out
}

// BalanceAsOf folds accountID's transactions up to and including the
// transaction with id upTo. Returns the full fold when upTo is never seen.
func BalanceAsOf(accountID AccountID, txs []Transaction, upTo TransactionID) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.AccountID != accountID {
			continue
		}
		sum = sum.Add(tx.Amount.Amount)
		if tx.ID == upTo {
			break
		}
	}
	return sum
}
