package provider

import (
	"errors"
	"strings"
	"time"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// Defaults for the HTML provider.
const (
	DefaultUserAgent         = "Mozilla/5.0 (compatible; listing-crawler/1.0)"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultRequestsPerSecond = 0.5
	DefaultBurst             = 1
	DefaultPageSuffix        = "/page-{page}"

	minPlaceholder  = "{min}"
	maxPlaceholder  = "{max}"
	pagePlaceholder = "{page}"
)

var errMissingSearchURL = errors.New("provider search_url is required")

// Selectors locate page elements. Every value is a goquery CSS selector.
type Selectors struct {
	ResultCount     string            `yaml:"result_count"`
	ItemLink        string            `yaml:"item_link"`
	NextButton      string            `yaml:"next_button"`
	NextHiddenClass string            `yaml:"next_hidden_class"`
	Entries         string            `yaml:"entries"`
	Fields          map[string]string `yaml:"fields"`
}

// Config configures the HTML provider.
type Config struct {
	// SearchURL is the search page template with {min} and {max} placeholders.
	SearchURL string `yaml:"search_url" env:"PROVIDER_SEARCH_URL"`
	// PageSuffix is appended for pages after the first, with a {page} placeholder.
	PageSuffix        string        `yaml:"page_suffix" env:"PROVIDER_PAGE_SUFFIX"`
	UserAgent         string        `yaml:"user_agent" env:"PROVIDER_USER_AGENT"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"PROVIDER_REQUEST_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"PROVIDER_REQUESTS_PER_SECOND"`
	Burst             int           `yaml:"burst" env:"PROVIDER_BURST"`
	Selectors         Selectors     `yaml:"selectors"`
}

// DefaultSelectors returns the selectors of the supported listing site layout.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultCount:     "div.homes.summary",
		ItemLink:        "a.bp-Homecard__Address",
		NextButton:      "button.PageArrow__direction--next",
		NextHiddenClass: "PageArrow--hidden",
		Entries:         "li.entryItem",
		Fields: map[string]string{
			domain.FieldStatus:        "div.ListingStatusBannerSection",
			domain.FieldFullAddress:   "h1.full-address",
			domain.FieldStreetAddress: "h1.street-address",
			domain.FieldPrice:         "div.statsValue",
			domain.FieldPriceAlt:      "div.price",
			domain.FieldBeds:          "div.beds-section .statsValue",
			domain.FieldBaths:         "div.baths-section .statsValue",
			domain.FieldArea:          "div.sqft-section .statsValue",
			domain.FieldPropertyType:  "div.keyDetails-row.property-type .valueText",
			domain.FieldListingAgent:  "div.agent-basic-details--heading span",
			domain.FieldBroker:        "span.agent-basic-details--broker",
		},
	}
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PageSuffix == "" {
		c.PageSuffix = DefaultPageSuffix
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst == 0 {
		c.Burst = DefaultBurst
	}

	defaults := DefaultSelectors()
	s := &c.Selectors
	if s.ResultCount == "" {
		s.ResultCount = defaults.ResultCount
	}
	if s.ItemLink == "" {
		s.ItemLink = defaults.ItemLink
	}
	if s.NextButton == "" {
		s.NextButton = defaults.NextButton
	}
	if s.NextHiddenClass == "" {
		s.NextHiddenClass = defaults.NextHiddenClass
	}
	if s.Entries == "" {
		s.Entries = defaults.Entries
	}
	if s.Fields == nil {
		s.Fields = make(map[string]string, len(defaults.Fields))
	}
	for name, sel := range defaults.Fields {
		if _, ok := s.Fields[name]; !ok {
			s.Fields[name] = sel
		}
	}
}

// Validate checks the search template.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SearchURL) == "" {
		return errMissingSearchURL
	}
	return nil
}
