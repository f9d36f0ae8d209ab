// Package filter applies optional range and property-type criteria to deal
// sets. Filters compose: applying two criteria sets in sequence equals one
// pass with the intersection of their ranges.
package filter

import (
	"strings"

	"nadlancli/pkg/contracts/domain"
)

// Apply returns the deals matching every set criterion. The criteria must
// already be validated.
//
// Missing-data handling differs per dimension: when a rooms, price or area
// filter is active, deals without that value are excluded; the floor filter
// instead passes deals whose floor could not be resolved to a number.
// Property type matches by normalized substring, so a filter of "דירה" also
// matches "דירת גן".
func Apply(deals []domain.Deal, criteria domain.FilterCriteria) []domain.Deal {
	if criteria.IsZero() {
		return deals
	}

	filtered := make([]domain.Deal, 0, len(deals))
	for _, d := range deals {
		if matches(d, criteria) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func matches(d domain.Deal, c domain.FilterCriteria) bool {
	if c.PropertyType != "" {
		if d.PropertyType == "" {
			return false
		}
		want := strings.ToLower(strings.TrimSpace(c.PropertyType))
		have := strings.ToLower(strings.TrimSpace(d.PropertyType))
		if !strings.Contains(have, want) {
			return false
		}
	}

	if c.MinRooms != nil || c.MaxRooms != nil {
		if d.Rooms <= 0 {
			return false
		}
		if c.MinRooms != nil && d.Rooms < *c.MinRooms {
			return false
		}
		if c.MaxRooms != nil && d.Rooms > *c.MaxRooms {
			return false
		}
	}

	if c.MinPrice != nil || c.MaxPrice != nil {
		if d.Amount <= 0 {
			return false
		}
		if c.MinPrice != nil && d.Amount < *c.MinPrice {
			return false
		}
		if c.MaxPrice != nil && d.Amount > *c.MaxPrice {
			return false
		}
	}

	if c.MinArea != nil || c.MaxArea != nil {
		if d.Area <= 0 {
			return false
		}
		if c.MinArea != nil && d.Area < *c.MinArea {
			return false
		}
		if c.MaxArea != nil && d.Area > *c.MaxArea {
			return false
		}
	}

	if c.MinFloor != nil || c.MaxFloor != nil {
		// Deals without a resolvable floor number pass a floor filter
		if d.FloorNumber != nil {
			if c.MinFloor != nil && *d.FloorNumber < *c.MinFloor {
				return false
			}
			if c.MaxFloor != nil && *d.FloorNumber > *c.MaxFloor {
				return false
			}
		}
	}

	return true
}
