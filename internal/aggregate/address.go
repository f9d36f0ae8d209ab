package aggregate

import "strings"

// AddressMatcher decides whether a deal address refers to the building being
// searched for
type AddressMatcher interface {
	SameBuilding(searchAddress, dealAddress string) bool
}

// HeuristicMatcher matches addresses by normalized comparison: exact
// equality, equal (street, house number) pairs, or substring containment of
// sufficiently long addresses. Hebrew street prefixes (רח', רחוב, שד',
// שדרות) are stripped before comparison.
type HeuristicMatcher struct{}

// SameBuilding implements AddressMatcher. Both inputs are expected
// lowercase and trimmed.
func (HeuristicMatcher) SameBuilding(searchAddress, dealAddress string) bool {
	if searchAddress == "" || dealAddress == "" {
		return false
	}
	if searchAddress == dealAddress {
		return true
	}

	searchStreet, searchNumber := splitAddress(searchAddress)
	dealStreet, dealNumber := splitAddress(dealAddress)
	if searchStreet != "" && dealStreet != "" && searchNumber != "" && dealNumber != "" &&
		searchStreet == dealStreet && searchNumber == dealNumber {
		return true
	}

	// Containment catches different formats of the same address
	if len(searchAddress) > 5 && len(dealAddress) > 5 {
		if strings.Contains(dealAddress, searchAddress) || strings.Contains(searchAddress, dealAddress) {
			return true
		}
	}
	return false
}

// splitAddress extracts (street, house number) from a normalized address.
// The house number is the first token containing a digit; everything else is
// the street name.
func splitAddress(addr string) (street, number string) {
	for _, prefix := range []string{"רח'", "רחוב", "שד'", "שדרות"} {
		addr = strings.ReplaceAll(addr, prefix, "")
	}
	addr = strings.Join(strings.Fields(addr), " ")

	parts := strings.Fields(addr)
	if len(parts) < 2 {
		return addr, ""
	}
	for i, part := range parts {
		if strings.ContainsAny(part, "0123456789") {
			rest := make([]string, 0, len(parts)-1)
			rest = append(rest, parts[:i]...)
			rest = append(rest, parts[i+1:]...)
			return strings.TrimSpace(strings.Join(rest, " ")), part
		}
	}
	return addr, ""
}
