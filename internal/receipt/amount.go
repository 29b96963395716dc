package receipt

import (
	"math"
	"strconv"
	"strings"
)

// parseAmount converts a matched amount such as "1,234.50" or "140" into a
// float. Thousands separators are stripped; the decimal point is kept.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// round2 normalizes a monetary value to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatAmount renders an amount with the fewest digits that represent it,
// so "80" stays "80" and "80.5" stays "80.5".
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
