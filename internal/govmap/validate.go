package govmap

import (
	"fmt"
	"strings"

	"nadlancli/pkg/contracts/domain"
)

// Input caps for registry queries. The exported caps are shared with the
// aggregation layer's parameter validation.
const (
	MaxRadiusMeters = 5000
	MaxYearsBack    = 50
	MaxTotalDeals   = 10000

	maxAddressLength = 500
	maxDealLimit     = 1000
)

// Rough ITM bounds for Israel. Values outside are suspicious but not
// rejected; the registry is the authority on coverage.
const (
	itmMaxX = 400000.0
	itmMaxY = 1400000.0
)

// ValidateAddress trims and checks an address string
func ValidateAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: address cannot be empty", domain.ErrInvalidInput)
	}
	if len(address) > maxAddressLength {
		return "", fmt.Errorf("%w: address is too long (max %d characters)", domain.ErrInvalidInput, maxAddressLength)
	}
	return address, nil
}

// ValidatePositiveInt checks that value is positive and within maxValue.
// A maxValue of zero disables the upper bound.
func ValidatePositiveInt(value int, name string, maxValue int) error {
	if value <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", domain.ErrInvalidInput, name, value)
	}
	if maxValue > 0 && value > maxValue {
		return fmt.Errorf("%w: %s is too large (max %d)", domain.ErrInvalidInput, name, maxValue)
	}
	return nil
}

// ValidateDealType checks the deal type is one of the recognized values
func ValidateDealType(dealType int) error {
	if !domain.DealType(dealType).IsValid() {
		return fmt.Errorf("%w: deal_type must be 1 (first hand) or 2 (second hand), got %d", domain.ErrInvalidInput, dealType)
	}
	return nil
}

// outsideITMBounds reports whether a point falls outside the rough Israeli
// ITM envelope
func outsideITMBounds(p Point) bool {
	return p.X <= 0 || p.X >= itmMaxX || p.Y <= 0 || p.Y >= itmMaxY
}
