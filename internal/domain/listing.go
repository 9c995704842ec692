package domain

import "strings"

// Listing identifies one item discovered on a result page.
type Listing struct {
	// ID is the listing URL. It is opaque to everything except the provider.
	ID string `json:"id"`
	// Position is the zero-based display position on its page.
	Position int `json:"position"`
}

// Detail field names carried in Snapshot.Fields.
const (
	FieldStatus        = "status"
	FieldFullAddress   = "full_address"
	FieldStreetAddress = "street_address"
	FieldPrice         = "price"
	FieldPriceAlt      = "price_alt"
	FieldBeds          = "beds"
	FieldBaths         = "baths"
	FieldArea          = "sqft"
	FieldPropertyType  = "property_type"
	FieldListingAgent  = "listing_agent"
	FieldBroker        = "broker"
)

// Snapshot is the raw, unnormalized content of a listing's detail page.
type Snapshot struct {
	URL string
	// Fields maps a detail field name to the raw text found for it.
	Fields map[string]string
	// Entries holds labeled entries such as "Heating: Oil" in page order.
	Entries []string
	// Text is the visible page text, one block per line.
	Text string
}

// Field returns the trimmed raw text for name, or "" when absent.
func (s Snapshot) Field(name string) string {
	if s.Fields == nil {
		return ""
	}
	return strings.TrimSpace(s.Fields[name])
}
