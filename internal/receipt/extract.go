package receipt

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// ErrNoTotalAmount reports a receipt whose body matched none of the total
// amount patterns. The total is the one mandatory field of every receipt.
var ErrNoTotalAmount = errors.New("no total amount found")

// totalPatterns are tried in order against the raw body; the first match
// wins. Satang digits are optional only in the baht-symbol form.
var totalPatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"baht-symbol", regexp.MustCompile(`฿\s*([\d,]+(?:\.\d{2})?)`)},
	{"thb-prefix", regexp.MustCompile(`THB\s*([\d,]+\.\d{2})`)},
	{"thb-suffix", regexp.MustCompile(`([\d,]+\.\d{2})\s*THB`)},
}

// Booking references look like A-6JVGAB3CXNVJ.
var orderIDRegex = regexp.MustCompile(`A-[A-Z0-9]{10,}`)

// Extraction holds everything pulled out of a single receipt body.
type Extraction struct {
	OrderID     string
	TotalAmount float64
	Metadata    map[string]any
}

// Extract pulls the order id, total amount and type-specific metadata
// from a classified receipt body. The total and order id match against
// the raw body, the field rules against the stripped text. A body with
// no parseable total returns ErrNoTotalAmount; individual metadata rules
// that find nothing leave their key nil instead of failing.
func Extract(body string, serviceType types.ServiceType) (*Extraction, error) {
	total, ok := findTotal(body)
	if !ok {
		return nil, fmt.Errorf("extract %s receipt: %w", serviceType, ErrNoTotalAmount)
	}
	return &Extraction{
		OrderID:     orderIDRegex.FindString(body),
		TotalAmount: total,
		Metadata:    applyRules(rulesFor(serviceType), StripMarkup(body)),
	}, nil
}

func findTotal(body string) (float64, bool) {
	for _, p := range totalPatterns {
		m := p.regex.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		if v, ok := parseAmount(m[1]); ok {
			return round2(v), true
		}
	}
	return 0, false
}
