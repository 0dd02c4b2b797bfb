package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// tempPasswordAlphabet leaves out characters that are easy to misread in an
// email: 0/O and 1/l/I.
const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// GenerateTempPassword returns a random password for invited users.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	// Rejection sampling keeps every symbol equally likely.
	const limit = 256 - 256%len(tempPasswordAlphabet)
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}
		for _, b := range buf {
			if int(b) < limit && len(out) < length {
				out = append(out, tempPasswordAlphabet[int(b)%len(tempPasswordAlphabet)])
			}
		}
	}
	return string(out), nil
}

// GenerateURLToken returns n random bytes as unpadded base64url, for
// single-use links embedded in emails.
func GenerateURLToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("token size must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
