package validation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Acme", SanitizeString("  Acme  ", MaxStringLength))
	assert.Equal(t, "Acme", SanitizeString("Ac\x00me", MaxStringLength))
	assert.Equal(t, "", SanitizeString("   ", MaxStringLength))
}

func TestSanitizeStringTruncatesOnRuneBoundary(t *testing.T) {
	// 120 two-byte runes; a byte cap of 201 lands mid-rune.
	s := strings.Repeat("é", 120)

	out := SanitizeString(s, 201)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 200, len(out))
	assert.Equal(t, 100, utf8.RuneCountInString(out))
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount(" 1250.50 ")
	require.NoError(t, err)
	assert.Equal(t, 1250.50, got)

	for _, bad := range []string{"", "abc", "12.3.4", "-1", "Inf", "+Inf", "-Inf", "NaN"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, "amount %q", bad)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())

	for _, bad := range []string{"", "06/01/2025", "2025-13-40"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "date %q", bad)
	}
}
