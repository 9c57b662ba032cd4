// numbers.go - Account and card number generation.
package bank

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// GenerateAccountNumber returns a human-facing account number: "ACC" plus
// ten random digits. Uniqueness is enforced by the caller against the
// store (and by the account_number unique constraint in SQLite).
func GenerateAccountNumber() (string, error) {
	digits, err := randomDigits(10)
	if err != nil {
		return "", err
	}
	return "ACC" + digits, nil
}

// GenerateCardNumber generates a card number with the specified prefix and
// length. Demo numbers: random digits, no Luhn check digit.
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length < len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}
	digits, err := randomDigits(length - len(prefix))
	if err != nil {
		return "", err
	}
	return prefix + digits, nil
}

// GenerateExpiryDate generates a card expiry date (MM/YY), three years out.
func GenerateExpiryDate(now time.Time) string {
	year := now.Year() + 3
	return fmt.Sprintf("%02d/%02d", now.Month(), year%100)
}

// GenerateCVV generates a 3-digit CVV code.
func GenerateCVV() (string, error) {
	return randomDigits(3)
}

func randomDigits(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}
	var b strings.Builder
	for _, c := range raw {
		b.WriteByte(c%10 + '0')
	}
	return b.String(), nil
}
