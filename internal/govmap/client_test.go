package govmap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nadlancli/internal/config"
	"nadlancli/pkg/contracts/domain"
)

func testClientConfig(baseURL string) config.GovmapConfig {
	return config.GovmapConfig{
		BaseURL:              baseURL,
		UserAgent:            "nadlancli-test",
		ConnectTimeout:       time.Second,
		ReadTimeout:          2 * time.Second,
		MaxRetries:           2,
		RetryMinWait:         time.Millisecond,
		RetryMaxWait:         5 * time.Millisecond,
		RequestsPerSecond:    1000,
		DefaultRadius:        30,
		DefaultYearsBack:     2,
		DefaultDealLimit:     100,
		MaxConcurrentFetches: 4,
	}
}

func TestResolveAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search-service/autocomplete", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "סוקולוב 38 חולון", payload["searchText"])

		json.NewEncoder(w).Encode(AutocompleteResponse{
			ResultsCount: 1,
			Results: []AutocompleteResult{
				{Text: "סוקולוב 38, חולון", Shape: "POINT(184391.15 655412.87)"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), nil)
	point, err := client.ResolveAddress(context.Background(), "סוקולוב 38 חולון")
	require.NoError(t, err)
	assert.Equal(t, Point{X: 184391.15, Y: 655412.87}, point)
}

func TestResolveAddressNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"resultsCount": 0, "results": []any{}})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), nil)
	_, err := client.ResolveAddress(context.Background(), "רחוב שלא קיים")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoResults)
}

func TestDealsByRadiusRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"dealId": 1, "dealDate": "2024-05-01", "dealAmount": 1500000, "assetArea": 80, "polygon_id": "p1"},
			{"dealId": 2, "dealDate": "2024-04-01", "dealAmount": 1800000, "assetArea": 90, "polygon_id": "p2"},
		})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), nil)
	deals, err := client.DealsByRadius(context.Background(), Point{X: 184391, Y: 655412}, 30)
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "p1", deals[0].SourcePolygon)
}

func TestDealsByRadiusExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), nil)
	_, err := client.DealsByRadius(context.Background(), Point{X: 184391, Y: 655412}, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestStreetDealsEnvelopeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/real-estate/street-deals/p1", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "2", r.URL.Query().Get("dealType"))
		assert.Equal(t, "2023-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2025-01", r.URL.Query().Get("endDate"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"dealId": "7", "dealDate": "2024-02-01", "dealAmount": 2100000},
			},
			"totalCount": 1,
		})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), nil)
	deals, err := client.StreetDeals(context.Background(), "p1", DealQuery{
		Limit:     50,
		StartDate: "2023-01",
		EndDate:   "2025-01",
		DealType:  2,
	})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "7", deals[0].ID)
}

func TestStreetDealsBareListResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"dealId": "8", "dealDate": "2024-02-01", "dealAmount": 1100000},
		})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), nil)
	deals, err := client.StreetDeals(context.Background(), "p1", DealQuery{Limit: 10, DealType: 2})
	require.NoError(t, err)
	require.Len(t, deals, 1)
}

func TestStreetDealsInputValidation(t *testing.T) {
	client := NewClient(testClientConfig("http://unused.invalid"), nil)

	_, err := client.StreetDeals(context.Background(), "  ", DealQuery{Limit: 10, DealType: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = client.StreetDeals(context.Background(), "p1", DealQuery{Limit: 0, DealType: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = client.StreetDeals(context.Background(), "p1", DealQuery{Limit: 10, DealType: 9})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
