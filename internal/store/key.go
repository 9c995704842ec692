package store

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// Key columns a store can deduplicate on.
const (
	KeyFullAddress = domain.ColumnFullAddress
	KeyURL         = domain.ColumnURL
)

var errMissingSchemeOrHost = errors.New("normalize url: missing scheme or host")

// trackingParams are query parameters that never change which listing a URL points at.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"msclkid":      {},
}

// NormalizeKey canonicalizes a key value for duplicate detection. Addresses are
// lowercased with whitespace collapsed; URLs go through NormalizeURL and fall
// back to the trimmed text when they do not parse.
func NormalizeKey(column, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == domain.Sentinel {
		return domain.Sentinel
	}

	if column == KeyURL {
		if normalized, err := NormalizeURL(value); err == nil {
			return normalized
		}
		return value
	}

	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// NormalizeURL lowercases scheme and host, upgrades http to https, drops the
// fragment, default ports, tracking parameters and trailing slashes, and sorts
// the query.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errMissingSchemeOrHost
	}

	host := strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	parsed.Scheme = "https"
	parsed.Host = host
	parsed.Fragment = ""
	parsed.RawQuery = cleanQuery(parsed.Query())
	parsed.Path = cleanPath(parsed.Path)

	return parsed.String(), nil
}

func cleanQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, tracking := trackingParams[key]; !tracking {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	kept := make(url.Values, len(keys))
	for _, key := range keys {
		kept[key] = values[key]
	}
	return kept.Encode()
}

func cleanPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	return strings.TrimRight(path.Clean(p), "/")
}
