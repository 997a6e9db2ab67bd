package order

import (
	"fmt"
	"net/url"
	"strings"
)

// Supported carriers
const (
	CarrierUPS   = "UPS"
	CarrierFedEx = "FEDEX"
	CarrierUSPS  = "USPS"
	CarrierDHL   = "DHL"
)

var trackingURLTemplates = map[string]string{
	CarrierUPS:   "https://www.ups.com/track?tracknum=%s",
	CarrierFedEx: "https://www.fedex.com/fedextrack/?trknbr=%s",
	CarrierUSPS:  "https://tools.usps.com/go/TrackConfirmAction?tLabels=%s",
	CarrierDHL:   "https://www.dhl.com/en/express/tracking.html?AWB=%s",
}

var transitDays = map[string]int{
	CarrierUPS:   5,
	CarrierFedEx: 4,
	CarrierUSPS:  7,
	CarrierDHL:   6,
}

const defaultTransitDays = 7

// NormalizeCarrier upper-cases and trims a carrier name ("FedEx " -> "FEDEX")
func NormalizeCarrier(carrier string) string {
	return strings.ToUpper(strings.TrimSpace(carrier))
}

// TrackingURL resolves the carrier tracking page. Unknown carriers get "".
func TrackingURL(carrier, trackingNumber string) string {
	tmpl, ok := trackingURLTemplates[NormalizeCarrier(carrier)]
	if !ok || trackingNumber == "" {
		return ""
	}
	return fmt.Sprintf(tmpl, url.QueryEscape(trackingNumber))
}

// EstimatedTransitDays returns the expected delivery window for a carrier
func EstimatedTransitDays(carrier string) int {
	if d, ok := transitDays[NormalizeCarrier(carrier)]; ok {
		return d
	}
	return defaultTransitDays
}

// IsKnownCarrier reports whether a tracking URL template exists for carrier
func IsKnownCarrier(carrier string) bool {
	_, ok := trackingURLTemplates[NormalizeCarrier(carrier)]
	return ok
}
