// Package govmap is an HTTP client for the Israeli Govmap real-estate
// registry. It resolves addresses to ITM coordinates, fetches transaction
// records by radius, street and neighborhood, and normalizes the raw wire
// records into canonical deals.
package govmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Point is an ITM (Israeli Transverse Mercator) coordinate. Units are
// meters, so Euclidean distance between points is a distance in meters.
type Point struct {
	X float64 `json:"x"` // longitude axis
	Y float64 `json:"y"` // latitude axis
}

// String renders the point as "x,y" for URL paths
func (p Point) String() string {
	return fmt.Sprintf("%g,%g", p.X, p.Y)
}

// ParseWKTPoint parses a WKT "POINT(x y)" string as returned by the
// autocomplete endpoint
func ParseWKTPoint(shape string) (Point, error) {
	if !strings.HasPrefix(shape, "POINT(") || !strings.HasSuffix(shape, ")") {
		return Point{}, fmt.Errorf("invalid coordinate format: %q", shape)
	}
	inner := shape[len("POINT(") : len(shape)-1]
	fields := strings.Fields(inner)
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("invalid coordinate format: %q", shape)
	}
	var p Point
	if _, err := fmt.Sscanf(fields[0]+" "+fields[1], "%g %g", &p.X, &p.Y); err != nil {
		return Point{}, fmt.Errorf("invalid coordinate format %q: %w", shape, err)
	}
	return p, nil
}

// AutocompleteResult is a single candidate from the address search endpoint
type AutocompleteResult struct {
	Text  string  `json:"text"`
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	// Shape is the WKT POINT string carrying the result coordinates
	Shape string `json:"shape"`
}

// AutocompleteResponse is the address search endpoint response
type AutocompleteResponse struct {
	ResultsCount int                  `json:"resultsCount"`
	Results      []AutocompleteResult `json:"results"`
}

// FlexString decodes a JSON string, number or null into a string. The
// registry is inconsistent about quoting for fields like house numbers and
// identifiers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the decoded value
func (f FlexString) String() string { return string(f) }

// Float64 parses the value as a float. Empty values report an error.
func (f FlexString) Float64() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
}

// RawDeal is a transaction record as returned on the wire. Field presence is
// not guaranteed; normalization maps it into the canonical deal shape.
type RawDeal struct {
	DealID     FlexString `json:"dealId"`
	DealDate   string     `json:"dealDate"`
	DealAmount FlexString `json:"dealAmount"`

	AssetArea    FlexString `json:"assetArea"`
	AssetRoomNum FlexString `json:"assetRoomNum"`
	FloorNo      FlexString `json:"floorNo"`

	PropertyTypeDescription string `json:"propertyTypeDescription"`
	AssetTypeHeb            string `json:"assetTypeHeb"`

	SettlementNameHeb string     `json:"settlementNameHeb"`
	Neighborhood      string     `json:"neighborhood"`
	StreetNameHeb     string     `json:"streetNameHeb"`
	HouseNum          FlexString `json:"houseNum"`

	// PolygonID is only present on radius search results
	PolygonID FlexString `json:"polygon_id"`
}

// PropertyType returns the property description, preferring the primary
// field over the legacy one
func (r RawDeal) PropertyType() string {
	if r.PropertyTypeDescription != "" {
		return r.PropertyTypeDescription
	}
	return r.AssetTypeHeb
}

// DealQuery holds the query parameters for street and neighborhood deal
// endpoints. Dates use the registry's YYYY-MM format.
type DealQuery struct {
	Limit     int
	StartDate string
	EndDate   string
	DealType  int
}

// dealListResponse covers the envelope variant of deal list endpoints,
// {"data": [...], "totalCount": ...}. Some endpoints return a bare list
// instead.
type dealListResponse struct {
	Data       []RawDeal `json:"data"`
	TotalCount int       `json:"totalCount"`
}
