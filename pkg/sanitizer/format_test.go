package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "User@Example.COM", "user@example.com"},
		{"trims whitespace", "  user@example.com  ", "user@example.com"},
		{"trims and lowercases", " A@Example.com ", "a@example.com"},
		{"already normalized", "user@example.com", "user@example.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.NormalizeEmail(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain 10 digits", "5551234567", "5551234567"},
		{"11 digits strips trunk prefix", "05551234567", "5551234567"},
		{"separators removed", "(555) 123-4567", "5551234567"},
		{"spaces and dashes", "0555 123 45 67", "5551234567"},
		{"too short stays as-is", "12345", "12345"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.NormalizePhone(tt.input))
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Some_User", sanitizer.NormalizeUsername("  Some_User "))
}

func TestCompose(t *testing.T) {
	t.Parallel()

	normalize := sanitizer.Compose(sanitizer.Trim, sanitizer.ToLower)
	assert.Equal(t, "hello", normalize("  HeLLo  "))
}
