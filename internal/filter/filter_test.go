package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nadlancli/pkg/contracts/domain"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func sampleDeals() []domain.Deal {
	floor3 := 3
	floor8 := 8
	return []domain.Deal{
		{ID: "a", PropertyType: "דירה", Rooms: 3, Amount: 1200000, Area: 75, FloorNumber: &floor3},
		{ID: "b", PropertyType: "דירת גן", Rooms: 4, Amount: 2100000, Area: 110, FloorNumber: nil},
		{ID: "c", PropertyType: "פנטהאוז", Rooms: 5, Amount: 4500000, Area: 160, FloorNumber: &floor8},
		{ID: "d", PropertyType: "", Rooms: 0, Amount: 900000, Area: 0},
	}
}

func ids(deals []domain.Deal) []string {
	var out []string
	for _, d := range deals {
		out = append(out, d.ID)
	}
	return out
}

func TestApplyNoCriteria(t *testing.T) {
	deals := sampleDeals()
	assert.Len(t, Apply(deals, domain.FilterCriteria{}), len(deals))
}

func TestApplyCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria domain.FilterCriteria
		want     []string
	}{
		{
			name:     "property type substring match",
			criteria: domain.FilterCriteria{PropertyType: "דירה"},
			want:     []string{"a"},
		},
		{
			name:     "property type prefix matches garden apartment",
			criteria: domain.FilterCriteria{PropertyType: "דירת"},
			want:     []string{"b"},
		},
		{
			name:     "rooms range excludes missing rooms",
			criteria: domain.FilterCriteria{MinRooms: f(3), MaxRooms: f(4)},
			want:     []string{"a", "b"},
		},
		{
			name:     "price range",
			criteria: domain.FilterCriteria{MinPrice: f(1000000), MaxPrice: f(3000000)},
			want:     []string{"a", "b"},
		},
		{
			name:     "area excludes missing area",
			criteria: domain.FilterCriteria{MinArea: f(50)},
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "floor filter passes unresolved floors",
			criteria: domain.FilterCriteria{MinFloor: i(4)},
			want:     []string{"b", "c", "d"},
		},
		{
			name:     "max floor",
			criteria: domain.FilterCriteria{MaxFloor: i(5)},
			want:     []string{"a", "b", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sampleDeals(), tt.criteria)))
		})
	}
}

func TestApplyComposes(t *testing.T) {
	deals := sampleDeals()

	a := domain.FilterCriteria{MinPrice: f(1000000), MaxArea: f(200)}
	b := domain.FilterCriteria{MaxPrice: f(3000000), MinArea: f(100)}
	combined := domain.FilterCriteria{
		MinPrice: f(1000000), MaxPrice: f(3000000),
		MinArea: f(100), MaxArea: f(200),
	}

	sequential := Apply(Apply(deals, a), b)
	single := Apply(deals, combined)

	assert.Equal(t, ids(single), ids(sequential))
}

func TestCriteriaValidate(t *testing.T) {
	bad := domain.FilterCriteria{MinPrice: f(100), MaxPrice: f(50)}
	assert.Error(t, bad.Validate())

	good := domain.FilterCriteria{MinPrice: f(50), MaxPrice: f(100)}
	assert.NoError(t, good.Validate())
}
