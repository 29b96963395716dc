package receipt

import (
	"regexp"
	"strings"

	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// Grab reuses one e-receipt template across services, so classification
// runs marker checks against the raw body in strict priority order:
// tip markers first (tip receipts embed food template fragments), then
// the food source tag, then transport asset hosts, then the weaker
// fallback markers for each. First match wins.
var (
	tipMarkerRegex = regexp.MustCompile(`Tips E-Receipt|ทิปเพื่อเป็นกำลังใจ|Grab Tips E-Receipt`)

	// Transport templates load their imagery from the myteksi S3 bucket.
	transportAssetRegex = regexp.MustCompile(`myteksi\.s3.*?\.amazonaws\.com`)

	// Older food templates lack SOURCE_GRABFOOD but still carry rating
	// links or the zero-padded numeric order id in URL-encoded query
	// strings.
	foodFallbackRegex = regexp.MustCompile(`ratingStar%3D|orderID%3D00\d{9}`)

	transportFallbackRegex = regexp.MustCompile(`(?i)pick.{0,5}up\s+location|drop.{0,5}off\s+location`)
)

// foodSourceMarker is stamped into every current GrabFood template.
const foodSourceMarker = "SOURCE_GRABFOOD"

// Classify resolves the service type of a receipt from its raw body.
// Bodies matching no marker classify as ServiceUnknown rather than
// failing.
func Classify(body string) types.ServiceType {
	switch {
	case tipMarkerRegex.MatchString(body):
		return types.ServiceTip
	case strings.Contains(body, foodSourceMarker):
		return types.ServiceFood
	case transportAssetRegex.MatchString(body):
		return types.ServiceTransport
	case foodFallbackRegex.MatchString(body):
		return types.ServiceFood
	case transportFallbackRegex.MatchString(body):
		return types.ServiceTransport
	default:
		return types.ServiceUnknown
	}
}
