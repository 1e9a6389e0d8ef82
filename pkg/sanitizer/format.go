package sanitizer

import "strings"

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// The local part is lowercased too: the authority treats addresses
// case-insensitively, and a single canonical form keeps lookups consistent.
func NormalizeEmail(email string) string {
	return Apply(email, Trim, ToLower)
}

// NormalizeUsername trims surrounding whitespace. Case is preserved because
// usernames are display-facing and immutable after creation.
func NormalizeUsername(username string) string {
	return Trim(username)
}

// NormalizePhone strips separators and, for 11-digit numbers, the leading
// trunk-prefix digit, leaving the 10-digit national number. Input of any
// other length is returned digits-only and left for the validator to reject.
func NormalizePhone(phone string) string {
	digits := KeepDigits(strings.TrimSpace(phone))
	if len(digits) == 11 {
		return digits[1:]
	}
	return digits
}
