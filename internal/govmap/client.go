package govmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"nadlancli/internal/config"
	"nadlancli/pkg/contracts/domain"
)

// Client talks to the Govmap registry API. It rate-limits outgoing requests
// and retries transient failures with exponential backoff. Safe for
// concurrent use.
type Client struct {
	cfg     config.GovmapConfig
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a registry client from configuration
func NewClient(cfg config.GovmapConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger.With(slog.String("component", "govmap_client")),
	}
}

// AutocompleteAddress searches the registry for address candidates
func (c *Client) AutocompleteAddress(ctx context.Context, searchText string) (*AutocompleteResponse, error) {
	searchText, err := ValidateAddress(searchText)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"searchText": searchText,
		"language":   "he",
		"isAccurate": false,
		"maxResults": 10,
	}

	var result AutocompleteResponse
	err = c.doJSON(ctx, "autocomplete", http.MethodPost,
		c.baseURL+"/search-service/autocomplete", nil, payload, &result)
	if err != nil {
		return nil, err
	}
	if result.Results == nil {
		return nil, fmt.Errorf("invalid response format from autocomplete endpoint")
	}
	return &result, nil
}

// ResolveAddress resolves an address to ITM coordinates using the best
// autocomplete match
func (c *Client) ResolveAddress(ctx context.Context, address string) (Point, error) {
	result, err := c.AutocompleteAddress(ctx, address)
	if err != nil {
		return Point{}, err
	}
	if len(result.Results) == 0 {
		return Point{}, fmt.Errorf("no results found for address %q: %w", address, domain.ErrNoResults)
	}

	best := result.Results[0]
	if best.Shape == "" {
		return Point{}, fmt.Errorf("no coordinates in autocomplete result for %q", address)
	}
	point, err := ParseWKTPoint(best.Shape)
	if err != nil {
		return Point{}, err
	}
	if outsideITMBounds(point) {
		c.logger.WarnContext(ctx, "coordinates may be outside Israeli bounds",
			slog.Float64("x", point.X), slog.Float64("y", point.Y))
	}

	c.logger.InfoContext(ctx, "address resolved",
		slog.String("address", address),
		slog.String("point", point.String()),
	)
	return point, nil
}

// DealsByRadius fetches deals within a radius (meters) of a point. Results
// carry the source polygon identifier used by the street and neighborhood
// endpoints.
func (c *Client) DealsByRadius(ctx context.Context, point Point, radius int) ([]domain.Deal, error) {
	if err := ValidatePositiveInt(radius, "radius", MaxRadiusMeters); err != nil {
		return nil, err
	}

	var raws []RawDeal
	endpoint := fmt.Sprintf("%s/real-estate/deals/%s/%d", c.baseURL, point.String(), radius)
	if err := c.doJSON(ctx, "deals_by_radius", http.MethodGet, endpoint, nil, nil, &raws); err != nil {
		return nil, err
	}
	return NormalizeAll(ctx, c.logger, raws), nil
}

// StreetDeals fetches deals recorded on the street of a polygon
func (c *Client) StreetDeals(ctx context.Context, polygonID string, q DealQuery) ([]domain.Deal, error) {
	return c.polygonDeals(ctx, "street_deals", "street-deals", polygonID, q)
}

// NeighborhoodDeals fetches deals recorded in the neighborhood of a polygon
func (c *Client) NeighborhoodDeals(ctx context.Context, polygonID string, q DealQuery) ([]domain.Deal, error) {
	return c.polygonDeals(ctx, "neighborhood_deals", "neighborhood-deals", polygonID, q)
}

func (c *Client) polygonDeals(ctx context.Context, metric, path, polygonID string, q DealQuery) ([]domain.Deal, error) {
	polygonID = strings.TrimSpace(polygonID)
	if polygonID == "" {
		return nil, fmt.Errorf("%w: polygon_id cannot be empty", domain.ErrInvalidInput)
	}
	if err := ValidatePositiveInt(q.Limit, "limit", maxDealLimit); err != nil {
		return nil, err
	}
	if err := ValidateDealType(q.DealType); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("dealType", strconv.Itoa(q.DealType))
	if q.StartDate != "" {
		params.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("endDate", q.EndDate)
	}

	endpoint := fmt.Sprintf("%s/real-estate/%s/%s", c.baseURL, path, url.PathEscape(polygonID))

	// The endpoint answers either {"data": [...]} or a bare list
	var body json.RawMessage
	if err := c.doJSON(ctx, metric, http.MethodGet, endpoint, params, nil, &body); err != nil {
		return nil, err
	}

	raws, err := decodeDealList(body)
	if err != nil {
		return nil, err
	}
	return NormalizeAll(ctx, c.logger, raws), nil
}

// decodeDealList accepts both the enveloped and bare-list response shapes
func decodeDealList(body json.RawMessage) ([]RawDeal, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty deal list response")
	}
	if trimmed[0] == '[' {
		var raws []RawDeal
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("decode deal list: %w", err)
		}
		return raws, nil
	}
	var envelope dealListResponse
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode deal list envelope: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("unexpected deal list response shape")
	}
	return envelope.Data, nil
}

// BlockParcelAt looks up the cadastral block/parcel layer at a point
func (c *Client) BlockParcelAt(ctx context.Context, point Point) (json.RawMessage, error) {
	payload := map[string]any{
		"point":     []float64{point.X, point.Y},
		"layers":    []map[string]string{{"layerId": "16"}},
		"tolerance": 0,
	}
	var result json.RawMessage
	err := c.doJSON(ctx, "block_parcel", http.MethodPost,
		c.baseURL+"/layers-catalog/entitiesByPoint", nil, payload, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// doJSON performs a rate-limited request with retries and decodes the JSON
// response into out. Backoff doubles from RetryMinWait per attempt, capped
// at RetryMaxWait.
func (c *Client) doJSON(ctx context.Context, metric, method, endpoint string, params url.Values, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request payload: %w", err)
		}
	}

	fullURL := endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	attempts := c.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if attempt > 0 {
			retriesTotal.WithLabelValues(metric).Inc()
		}

		lastErr = c.doOnce(ctx, metric, method, fullURL, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		if attempt < attempts-1 {
			wait := c.cfg.RetryMinWait << attempt
			if wait > c.cfg.RetryMaxWait {
				wait = c.cfg.RetryMaxWait
			}
			c.logger.WarnContext(ctx, "registry request failed, retrying",
				slog.String("endpoint", metric),
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	c.logger.ErrorContext(ctx, "registry request failed after retries",
		slog.String("endpoint", metric),
		slog.Int("attempts", attempts),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("registry request %s failed after %d attempts: %w", metric, attempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, metric, method, fullURL string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(metric).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(metric, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(metric, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("registry returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
