package extract

import (
	"fmt"
	"strings"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// NormalizeAddress splits display text such as "25 Schooner Ln, Port Washington, NY 11050"
// into its parts. Parts that cannot be determined are set to the sentinel. When the
// text has the right shape but a malformed region/postal segment, the best-effort
// address is returned together with an error wrapping domain.ErrParse.
func NormalizeAddress(text string) (domain.Address, error) {
	full := strings.TrimSpace(text)
	if full == "" || full == domain.Sentinel {
		return domain.UnknownAddress(), fmt.Errorf("empty address: %w", domain.ErrParse)
	}

	addr := domain.UnknownAddress()
	addr.Full = full

	parts := strings.Split(full, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch {
	case len(parts) >= 3:
		addr.Street = orSentinel(parts[0])
		addr.City = orSentinel(parts[1])
		tokens := strings.Fields(parts[2])
		switch len(tokens) {
		case 0:
			return addr, fmt.Errorf("address %q: missing region and postal code: %w", full, domain.ErrParse)
		case 1:
			addr.Region = tokens[0]
			return addr, fmt.Errorf("address %q: missing postal code: %w", full, domain.ErrParse)
		default:
			addr.Region = tokens[len(tokens)-2]
			addr.PostalCode = tokens[len(tokens)-1]
		}

	case len(parts) == 2:
		addr.Street = orSentinel(parts[0])
		tokens := strings.Fields(parts[1])
		switch {
		case len(tokens) >= 3:
			addr.City = strings.Join(tokens[:len(tokens)-2], " ")
			addr.Region = tokens[len(tokens)-2]
			addr.PostalCode = tokens[len(tokens)-1]
		case len(tokens) == 2:
			addr.Region = tokens[0]
			addr.PostalCode = tokens[1]
		default:
			addr.City = orSentinel(parts[1])
		}

	default:
		addr.Street = full
	}

	return addr, nil
}

func orSentinel(v string) string {
	if v == "" {
		return domain.Sentinel
	}
	return v
}
