package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"Plain integer", "140", 140, true},
		{"Two decimals", "196.00", 196, true},
		{"Thousands separator", "1,234.50", 1234.5, true},
		{"Separator without decimals", "12,345", 12345, true},
		{"Surrounding spaces", " 556 ", 556, true},
		{"Empty", "", 0, false},
		{"Not a number", "abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := parseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "80", formatAmount(80))
	assert.Equal(t, "80.5", formatAmount(80.5))
	assert.Equal(t, "1234.5", formatAmount(1234.5))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 17.18, round2(17.18))
	assert.Equal(t, 20.0, round2(19.999))
}
