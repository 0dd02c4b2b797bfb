package invoices

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewNumber formats INV-YYYYMMDDHHMMSS-XXXXXX with six random uppercase hex
// characters.
func NewNumber(at time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("invoice number entropy: %w", err)
	}
	return "INV-" + at.UTC().Format("20060102150405") + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
