package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// fieldRule is one extraction step. Each rule owns a single metadata key
// and fills it from the stripped receipt text, or leaves it nil when its
// pattern finds nothing. Rules never fail the receipt; only the total
// amount is mandatory.
type fieldRule struct {
	key string
	run func(text string) any
}

// applyRules evaluates every rule so the resulting metadata always
// carries the full key set for the type.
func applyRules(rules []fieldRule, text string) map[string]any {
	meta := make(map[string]any, len(rules))
	for _, rule := range rules {
		meta[rule.key] = rule.run(text)
	}
	return meta
}

func rulesFor(serviceType types.ServiceType) []fieldRule {
	switch serviceType {
	case types.ServiceFood:
		return foodRules
	case types.ServiceTransport:
		return transportRules
	case types.ServiceTip:
		return tipRules
	default:
		return nil
	}
}

// MetadataKeys returns the fixed metadata key set for a service type, in
// rule order. Unknown receipts carry no metadata keys.
func MetadataKeys(serviceType types.ServiceType) []string {
	rules := rulesFor(serviceType)
	keys := make([]string, len(rules))
	for i, rule := range rules {
		keys[i] = rule.key
	}
	return keys
}

// GrabFood receipts label fields in Thai: the trip-start block names the
// restaurant, the destination block the delivery address, and the
// profile block terminates the address.
var (
	restaurantRegex      = regexp.MustCompile(`สถานที่เริ่มต้นการเดินทาง:\s*(.+?)\s*สถานที่ปลายทาง`)
	deliveryAddressRegex = regexp.MustCompile(`สถานที่ปลายทาง:\s*(.+?)\s*โปรไฟล์`)
	itemRegex            = regexp.MustCompile(`(\d+)x\s+(.+?)\s+฿\s*([\d,]+)`)
	subtotalRegex        = regexp.MustCompile(`ค่าอาหาร\s+฿\s*([\d,]+)`)
	deliveryFeeRegex     = regexp.MustCompile(`ค่าจัดส่ง\s+฿\s*([\d,]+)`)
	foodPlatformRegex    = regexp.MustCompile(`(?:คำสั่งซื้อพิเศษ|Platform Fee|Small Order Fee)\s*\d*\s*฿\s*([\d,]+)`)
	foodPaymentRegex     = regexp.MustCompile(`(?i)(?:รูปแบบการชำระเงิน|Paid by|Payment)[:\s]*(MasterCard|Visa|Cash|GrabPay|เงินสด)\s*(\d{4})?`)
)

var foodRules = []fieldRule{
	{key: "restaurant", run: matchGroup(restaurantRegex, 1)},
	{key: "delivery_address", run: matchGroup(deliveryAddressRegex, 1)},
	{key: "items", run: extractItems},
	{key: "subtotal", run: matchMoney(subtotalRegex, 1)},
	{key: "delivery_fee", run: matchMoney(deliveryFeeRegex, 1)},
	{key: "platform_fee", run: matchMoney(foodPlatformRegex, 1)},
	{key: "payment_method", run: methodWithDigits(foodPaymentRegex)},
}

// Transport route summaries separate the two legs with a vertical
// ellipsis, each leg being a place followed by a clock time.
var (
	serviceClassRegex      = regexp.MustCompile(`(?i)(GrabCar\s*Premium|Standard\s*\(JustGrab\)|JustGrab|GrabBike)`)
	tripStatsRegex         = regexp.MustCompile(`([\d.]+)\s*km\s*[•·]\s*(\d+)\s*min`)
	tripLegRegex           = regexp.MustCompile(`([^⋮]+?)\s+(\d{1,2}:\d{2}[AP]M)`)
	fareRegex              = regexp.MustCompile(`(?:Fare|ค่าโดยสาร)\s+(?:฿\s*)?([\d,]+)`)
	tollRegex              = regexp.MustCompile(`(?i)Toll\s+(?:฿\s*)?([\d,]+)`)
	transportPlatformRegex = regexp.MustCompile(`(?i)Platform Fee\s+(?:฿\s*)?([\d,]+)`)
	cardEndingRegex        = regexp.MustCompile(`(?i)(?:Paid by|Payment)[:\s]*(?:.*?)(\d{4})\s*(?:฿|THB)`)
	cardMethodRegex        = regexp.MustCompile(`(?i)(MasterCard|Visa|Cash|GrabPay)\s*(\d{4})?`)
)

var transportRules = []fieldRule{
	{key: "service_class", run: matchGroup(serviceClassRegex, 1)},
	{key: "pickup", run: tripLeg(0, 1)},
	{key: "pickup_time", run: tripLeg(0, 2)},
	{key: "dropoff", run: tripLeg(1, 1)},
	{key: "dropoff_time", run: tripLeg(1, 2)},
	{key: "distance_km", run: extractDistance},
	{key: "duration_min", run: extractDuration},
	{key: "fare", run: matchMoney(fareRegex, 1)},
	{key: "toll", run: matchMoney(tollRegex, 1)},
	{key: "platform_fee", run: matchMoney(transportPlatformRegex, 1)},
	{key: "payment_method", run: extractTransportPayment},
}

// Tip receipts name the driver between the driver label and the rider
// label, with an optional fleet prefix.
var (
	driverNameRegex = regexp.MustCompile(`(?:ชื่อผู้ขับ|Driver)[:\s]*(?:\(GB\))?\s*([^\n]+?)(?:\s*ชื่อผู้เดินทาง|$)`)
	tipPaymentRegex = regexp.MustCompile(`(?i)(?:ชำระโดย|Paid by|Payment)[:\s]*(MasterCard|Visa|Cash|GrabPay)\s*(\d{4})?`)
)

var tipRules = []fieldRule{
	{key: "driver_name", run: matchGroup(driverNameRegex, 1)},
	{key: "payment_method", run: methodWithDigits(tipPaymentRegex)},
}

// matchGroup captures one trimmed string group from the first match.
func matchGroup(re *regexp.Regexp, group int) func(string) any {
	return func(text string) any {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		v := strings.TrimSpace(m[group])
		if v == "" {
			return nil
		}
		return v
	}
}

// matchMoney captures one amount group from the first match and parses it
// to a two-decimal number.
func matchMoney(re *regexp.Regexp, group int) func(string) any {
	return func(text string) any {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		v, ok := parseAmount(m[group])
		if !ok {
			return nil
		}
		return round2(v)
	}
}

// methodWithDigits renders "<method> <last4>", trimming when the card
// digits are absent.
func methodWithDigits(re *regexp.Regexp) func(string) any {
	return func(text string) any {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		return strings.TrimSpace(m[1] + " " + m[2])
	}
}

// extractItems flattens every ordered line item into "<qty>x <name>
// @<price>" joined with "; ".
func extractItems(text string) any {
	matches := itemRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		price, ok := parseAmount(m[3])
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%sx %s @%s", m[1], strings.TrimSpace(m[2]), formatAmount(price)))
	}
	if len(lines) == 0 {
		return nil
	}
	return strings.Join(lines, "; ")
}

// tripLeg selects the place (group 1) or time (group 2) of one leg of the
// route summary. Leg 0 is the pickup, leg 1 the drop-off.
func tripLeg(leg, group int) func(string) any {
	return func(text string) any {
		legs := tripLegRegex.FindAllStringSubmatch(text, -1)
		if len(legs) <= leg {
			return nil
		}
		v := strings.TrimSpace(legs[leg][group])
		if v == "" {
			return nil
		}
		return v
	}
}

func extractDistance(text string) any {
	m := tripStatsRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, ok := parseAmount(m[1])
	if !ok {
		return nil
	}
	return round2(v)
}

func extractDuration(text string) any {
	m := tripStatsRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	return n
}

// extractTransportPayment prefers the card form "Card ending NNNN" when
// the digits sit next to an amount, falling back to the bare method name.
func extractTransportPayment(text string) any {
	if m := cardEndingRegex.FindStringSubmatch(text); m != nil {
		return "Card ending " + m[1]
	}
	if m := cardMethodRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1] + " " + m[2])
	}
	return nil
}
