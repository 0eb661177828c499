package ipn

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint derives the dedup key for a normalized payment. Two deliveries
// of the same underlying payment (provider retries) always produce the same
// fingerprint; distinct payments with the same reference differ by amount or
// currency.
func Fingerprint(integrationID uint, p *NormalizedPayment) string {
	key := fmt.Sprintf("%d|%s|%.2f|%s",
		integrationID,
		strings.ToUpper(strings.TrimSpace(p.Reference())),
		p.Amount,
		strings.ToUpper(strings.TrimSpace(p.Currency)),
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
