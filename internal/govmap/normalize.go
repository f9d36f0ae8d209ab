package govmap

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"nadlancli/pkg/contracts/domain"
)

// Date layouts seen on the wire, most common first
var dealDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
}

var digitRun = regexp.MustCompile(`\d+`)

// hebrewFloors maps Hebrew ordinal floor names to numbers. Checked in order
// so lookup stays deterministic.
var hebrewFloors = []struct {
	name   string
	number int
}{
	{"קרקע", 0},
	{"מרתף", -1},
	{"ראשונה", 1},
	{"שניה", 2},
	{"שלישית", 3},
	{"רביעית", 4},
	{"חמישית", 5},
	{"שישית", 6},
	{"שביעית", 7},
	{"שמינית", 8},
	{"תשיעית", 9},
	{"עשירית", 10},
}

// ParseFloorNumber extracts a numeric floor from a Hebrew floor description
// such as "שלישית" or "קומה 3". Named ordinals win over embedded digits.
func ParseFloorNumber(floor string) (int, bool) {
	if floor == "" {
		return 0, false
	}
	lower := strings.ToLower(strings.TrimSpace(floor))

	for _, hf := range hebrewFloors {
		if strings.Contains(lower, hf.name) {
			return hf.number, true
		}
	}

	if m := digitRun.FindString(floor); m != "" {
		var n int
		if _, err := fmt.Sscanf(m, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// ParseDealDate parses a wire date string, trying each known layout
func ParseDealDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty deal date")
	}
	for _, layout := range dealDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deal date format: %q", s)
}

// Normalize maps a raw wire record into the canonical deal shape. Records
// without a finite positive amount or a parseable date are rejected.
func Normalize(raw RawDeal) (domain.Deal, error) {
	amount, err := raw.DealAmount.Float64()
	if err != nil {
		return domain.Deal{}, fmt.Errorf("deal amount %q: %w", raw.DealAmount.String(), err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return domain.Deal{}, fmt.Errorf("deal amount %v is not a positive finite number", amount)
	}

	date, err := ParseDealDate(raw.DealDate)
	if err != nil {
		return domain.Deal{}, err
	}

	deal := domain.Deal{
		ID:            raw.DealID.String(),
		Date:          date,
		Amount:        amount,
		PropertyType:  raw.PropertyType(),
		Settlement:    raw.SettlementNameHeb,
		Neighborhood:  raw.Neighborhood,
		Street:        raw.StreetNameHeb,
		HouseNumber:   raw.HouseNum.String(),
		Floor:         raw.FloorNo.String(),
		SourcePolygon: raw.PolygonID.String(),
	}

	// Optional numerics: parse failures leave the zero value
	if area, err := raw.AssetArea.Float64(); err == nil && area > 0 {
		deal.Area = area
	}
	if rooms, err := raw.AssetRoomNum.Float64(); err == nil && rooms > 0 {
		deal.Rooms = rooms
	}
	if n, ok := ParseFloorNumber(deal.Floor); ok {
		deal.FloorNumber = &n
	}

	deal.ComputePricePerSqm()
	return deal, nil
}

// NormalizeAll maps a batch of raw records, skipping and logging the ones
// that fail normalization so a single malformed record cannot sink a batch
func NormalizeAll(ctx context.Context, logger *slog.Logger, raws []RawDeal) []domain.Deal {
	deals := make([]domain.Deal, 0, len(raws))
	for _, raw := range raws {
		deal, err := Normalize(raw)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed deal record",
				slog.String("deal_id", raw.DealID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		deals = append(deals, deal)
	}
	return deals
}
