package domain

import (
	"strings"
	"time"
)

// Sentinel is stored for any field that could not be resolved.
const Sentinel = "-"

// ListingStatus classifies a listing's state.
type ListingStatus string

// Listing states.
const (
	StatusActive  ListingStatus = "active"
	StatusClosed  ListingStatus = "closed"
	StatusUnknown ListingStatus = "unknown"
)

// Attribute names carried in Record.Attributes.
const (
	AttributeHeating = "heating"
	AttributeCooling = "cooling"
)

// Column names of the persisted table, in output order.
const (
	ColumnURL          = "url"
	ColumnScrapeDate   = "scrape_date"
	ColumnStatus       = "listing_status"
	ColumnStatusDate   = "status_date"
	ColumnStreet       = "street_address"
	ColumnCity         = "city"
	ColumnRegion       = "state"
	ColumnPostalCode   = "zip_code"
	ColumnFullAddress  = "full_address"
	ColumnPrice        = "price"
	ColumnBeds         = "beds"
	ColumnBaths        = "baths"
	ColumnArea         = "sqft"
	ColumnPropertyType = "property_type"
	ColumnHeating      = "heating_type"
	ColumnCooling      = "cooling_type"
	ColumnAccepted     = "accepted"
	ColumnListingAgent = "listing_agent"
	ColumnBroker       = "broker"
)

const (
	scrapeDateLayout = "2006-01-02 15:04:05"
	acceptedYes      = "Yes"
	acceptedNo       = "No"
)

// RecordColumns lists every column a Record produces, in output order.
var RecordColumns = []string{
	ColumnURL,
	ColumnScrapeDate,
	ColumnStatus,
	ColumnStatusDate,
	ColumnStreet,
	ColumnCity,
	ColumnRegion,
	ColumnPostalCode,
	ColumnFullAddress,
	ColumnPrice,
	ColumnBeds,
	ColumnBaths,
	ColumnArea,
	ColumnPropertyType,
	ColumnHeating,
	ColumnCooling,
	ColumnAccepted,
	ColumnListingAgent,
	ColumnBroker,
}

// Address is a normalized postal address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Full       string `json:"full"`
}

// UnknownAddress returns an address with every part set to the sentinel.
func UnknownAddress() Address {
	return Address{
		Street:     Sentinel,
		City:       Sentinel,
		Region:     Sentinel,
		PostalCode: Sentinel,
		Full:       Sentinel,
	}
}

// Record is the canonical entity extracted from one listing.
type Record struct {
	URL          string            `json:"url"`
	ScrapedAt    time.Time         `json:"scraped_at"`
	Status       ListingStatus     `json:"status"`
	StatusDate   string            `json:"status_date"`
	Address      Address           `json:"address"`
	Price        string            `json:"price"`
	Beds         string            `json:"beds"`
	Baths        string            `json:"baths"`
	Area         string            `json:"area"`
	PropertyType string            `json:"property_type"`
	ListingAgent string            `json:"listing_agent"`
	Broker       string            `json:"broker"`
	Attributes   map[string]string `json:"attributes"`
	// Accepted is the result of the acceptance predicate.
	Accepted bool `json:"accepted"`
}

// Attribute returns the named attribute or the sentinel.
func (r *Record) Attribute(name string) string {
	if v, ok := r.Attributes[name]; ok && v != "" {
		return v
	}
	return Sentinel
}

// Row flattens the record into column values keyed by column name.
func (r *Record) Row() map[string]string {
	accepted := acceptedNo
	if r.Accepted {
		accepted = acceptedYes
	}

	return map[string]string{
		ColumnURL:          orSentinel(r.URL),
		ColumnScrapeDate:   r.ScrapedAt.Format(scrapeDateLayout),
		ColumnStatus:       string(r.Status),
		ColumnStatusDate:   orSentinel(r.StatusDate),
		ColumnStreet:       orSentinel(r.Address.Street),
		ColumnCity:         orSentinel(r.Address.City),
		ColumnRegion:       orSentinel(r.Address.Region),
		ColumnPostalCode:   orSentinel(r.Address.PostalCode),
		ColumnFullAddress:  orSentinel(r.Address.Full),
		ColumnPrice:        orSentinel(r.Price),
		ColumnBeds:         orSentinel(r.Beds),
		ColumnBaths:        orSentinel(r.Baths),
		ColumnArea:         orSentinel(r.Area),
		ColumnPropertyType: orSentinel(r.PropertyType),
		ColumnHeating:      r.Attribute(AttributeHeating),
		ColumnCooling:      r.Attribute(AttributeCooling),
		ColumnAccepted:     accepted,
		ColumnListingAgent: orSentinel(r.ListingAgent),
		ColumnBroker:       orSentinel(r.Broker),
	}
}

func orSentinel(v string) string {
	if strings.TrimSpace(v) == "" {
		return Sentinel
	}
	return v
}
