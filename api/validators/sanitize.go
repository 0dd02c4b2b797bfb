package validators

import (
	"strings"
	"unicode"
)

// SanitizeString collapses whitespace runs to a single space, drops control
// characters and caps the result at maxLen runes. maxLen <= 0 means no cap.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))

	count := 0
	pendingSpace := false
	for _, r := range input {
		if unicode.IsSpace(r) {
			pendingSpace = count > 0
			continue
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		if pendingSpace {
			if maxLen > 0 && count+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			count++
			pendingSpace = false
		}
		if maxLen > 0 && count >= maxLen {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

// SanitizeOptional applies SanitizeString to a pointer field and maps blank
// results to nil.
func SanitizeOptional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	out := SanitizeString(*input, maxLen)
	if out == "" {
		return nil
	}
	return &out
}
