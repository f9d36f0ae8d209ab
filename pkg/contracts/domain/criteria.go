package domain

import "fmt"

// FilterCriteria holds optional inclusive bounds for deal filtering.
// Only specified bounds are applied. A reversed pair (lower > upper) is a
// configuration error surfaced by Validate, never a runtime filtering
// outcome.
type FilterCriteria struct {
	PropertyType string   `json:"property_type,omitempty"`
	MinRooms     *float64 `json:"min_rooms,omitempty" validate:"omitempty,gte=0"`
	MaxRooms     *float64 `json:"max_rooms,omitempty" validate:"omitempty,gte=0"`
	MinPrice     *float64 `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice     *float64 `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	MinArea      *float64 `json:"min_area,omitempty" validate:"omitempty,gte=0"`
	MaxArea      *float64 `json:"max_area,omitempty" validate:"omitempty,gte=0"`
	MinFloor     *int     `json:"min_floor,omitempty"`
	MaxFloor     *int     `json:"max_floor,omitempty"`
}

// Validate checks that every paired bound satisfies lower <= upper
func (c FilterCriteria) Validate() error {
	if c.MinRooms != nil && c.MaxRooms != nil && *c.MinRooms > *c.MaxRooms {
		return fmt.Errorf("%w: min_rooms cannot be greater than max_rooms", ErrInvalidInput)
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return fmt.Errorf("%w: min_price cannot be greater than max_price", ErrInvalidInput)
	}
	if c.MinArea != nil && c.MaxArea != nil && *c.MinArea > *c.MaxArea {
		return fmt.Errorf("%w: min_area cannot be greater than max_area", ErrInvalidInput)
	}
	if c.MinFloor != nil && c.MaxFloor != nil && *c.MinFloor > *c.MaxFloor {
		return fmt.Errorf("%w: min_floor cannot be greater than max_floor", ErrInvalidInput)
	}
	return nil
}

// IsZero reports whether no criterion is set
func (c FilterCriteria) IsZero() bool {
	return c.PropertyType == "" &&
		c.MinRooms == nil && c.MaxRooms == nil &&
		c.MinPrice == nil && c.MaxPrice == nil &&
		c.MinArea == nil && c.MaxArea == nil &&
		c.MinFloor == nil && c.MaxFloor == nil
}
