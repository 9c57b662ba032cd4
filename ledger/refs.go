// refs.go - Transaction ID and reference number generation.
package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Reference prefixes by transaction type, matching the statement codes the
// bank prints: DEP1712... on a deposit slip, TXN1712... on both transfer legs.
var referencePrefixes = map[TransactionType]string{
	TxDeposit:    "DEP",
	TxWithdrawal: "WTH",
	TxTransfer:   "TXN",
	TxPayment:    "PAY",
	TxFee:        "FEE",
}

// NewTransactionID returns an opaque unique transaction identifier.
func NewTransactionID() TransactionID {
	return TransactionID(NewID("txn"))
}

// NewID returns an opaque identifier with the given entity prefix.
func NewID(prefix string) string {
	return prefix + "-" + randomHex(8)
}

// NewReference returns a reference number for a transaction of the given
// type: type prefix + millisecond stamp + random suffix. The stamp makes
// references sortable for audit; the suffix keeps two operations in the
// same millisecond distinct.
func NewReference(t TransactionType, now time.Time) string {
	prefix, ok := referencePrefixes[t]
	if !ok {
		prefix = "TXN"
	}
	return fmt.Sprintf("%s%d-%s", prefix, now.UnixMilli(), randomHex(3))
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a timestamp rather than returning an error from
		// every ID constructor.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
