// Package aggregate orchestrates the full deal search for an address:
// coordinate resolution, polygon discovery by radius, per-polygon street and
// neighborhood fetches, deduplication, tier classification and ordering.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nadlancli/internal/govmap"
	"nadlancli/pkg/contracts/domain"
)

// RegistryClient is the registry surface the aggregator needs
type RegistryClient interface {
	ResolveAddress(ctx context.Context, address string) (govmap.Point, error)
	DealsByRadius(ctx context.Context, point govmap.Point, radius int) ([]domain.Deal, error)
	StreetDeals(ctx context.Context, polygonID string, q govmap.DealQuery) ([]domain.Deal, error)
	NeighborhoodDeals(ctx context.Context, polygonID string, q govmap.DealQuery) ([]domain.Deal, error)
}

// Params controls a deal search
type Params struct {
	YearsBack int
	Radius    int
	MaxDeals  int
	DealType  domain.DealType
	// MaxConcurrentFetches caps parallel per-polygon fetches
	MaxConcurrentFetches int
}

// Validate checks search parameters
func (p Params) Validate() error {
	if err := govmap.ValidatePositiveInt(p.YearsBack, "years_back", govmap.MaxYearsBack); err != nil {
		return err
	}
	if err := govmap.ValidatePositiveInt(p.Radius, "radius", govmap.MaxRadiusMeters); err != nil {
		return err
	}
	if err := govmap.ValidatePositiveInt(p.MaxDeals, "max_deals", govmap.MaxTotalDeals); err != nil {
		return err
	}
	return govmap.ValidateDealType(int(p.DealType))
}

// Aggregator runs the multi-source deal search
type Aggregator struct {
	client  RegistryClient
	matcher AddressMatcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewAggregator creates an aggregator over the given registry client
func NewAggregator(client RegistryClient, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		client:  client,
		matcher: HeuristicMatcher{},
		logger:  logger.With(slog.String("component", "aggregator")),
		now:     time.Now,
	}
}

// polygonBatch holds the fetch results for one polygon
type polygonBatch struct {
	polygonID    string
	street       []domain.Deal
	neighborhood []domain.Deal
	err          error
}

// FindRecentDeals finds deals relevant to an address: same-building deals
// first, then street deals, then neighborhood deals, newest first within
// each tier. A failed polygon fetch is logged and skipped so one bad polygon
// cannot sink the whole search.
func (a *Aggregator) FindRecentDeals(ctx context.Context, address string, params Params) ([]domain.Deal, error) {
	address, err := govmap.ValidateAddress(address)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	point, err := a.client.ResolveAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("resolve address: %w", err)
	}

	nearby, err := a.client.DealsByRadius(ctx, point, params.Radius)
	if err != nil {
		return nil, fmt.Errorf("deals by radius: %w", err)
	}

	polygonIDs := uniquePolygonIDs(nearby)
	a.logger.InfoContext(ctx, "polygons discovered",
		slog.String("address", address),
		slog.Int("count", len(polygonIDs)),
	)

	end := a.now()
	start := end.AddDate(0, 0, -params.YearsBack*365)

	streetQuery := govmap.DealQuery{
		Limit:     params.MaxDeals / 2,
		StartDate: start.Format("2006-01"),
		EndDate:   end.Format("2006-01"),
		DealType:  int(params.DealType),
	}
	neighborhoodQuery := streetQuery
	neighborhoodQuery.Limit = params.MaxDeals / 4
	if neighborhoodQuery.Limit < 1 {
		neighborhoodQuery.Limit = 1
	}
	if streetQuery.Limit < 1 {
		streetQuery.Limit = 1
	}

	maxConcurrent := params.MaxConcurrentFetches
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	batches := a.fetchPolygons(ctx, polygonIDs, streetQuery, neighborhoodQuery, maxConcurrent)

	searchAddress := strings.ToLower(strings.TrimSpace(address))
	deals := a.classify(ctx, batches, searchAddress)

	OrderByTierAndDate(deals)
	if len(deals) > params.MaxDeals {
		deals = deals[:params.MaxDeals]
	}

	for i := range deals {
		deals[i].DealType = params.DealType
		deals[i].ComputePricePerSqm()
	}

	a.logger.InfoContext(ctx, "deal search complete",
		slog.String("address", address),
		slog.Int("deals", len(deals)),
	)
	return deals, nil
}

// fetchPolygons runs the per-polygon street and neighborhood fetches with
// bounded concurrency, returning batches in polygon order
func (a *Aggregator) fetchPolygons(ctx context.Context, polygonIDs []string, streetQuery, neighborhoodQuery govmap.DealQuery, maxConcurrent int) []polygonBatch {
	batches := make([]polygonBatch, len(polygonIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, id := range polygonIDs {
		i, id := i, id
		g.Go(func() error {
			batch := polygonBatch{polygonID: id}
			street, err := a.client.StreetDeals(gctx, id, streetQuery)
			if err == nil {
				batch.street = street
				batch.neighborhood, err = a.client.NeighborhoodDeals(gctx, id, neighborhoodQuery)
			}
			batch.err = err
			batches[i] = batch
			return nil
		})
	}
	g.Wait()
	return batches
}

// classify splits batches into tiers and deduplicates across them. Street
// batches are processed before neighborhood batches so a deal seen on a
// street never reappears at neighborhood tier.
func (a *Aggregator) classify(ctx context.Context, batches []polygonBatch, searchAddress string) []domain.Deal {
	seen := map[string]bool{}
	var building, street, neighborhood []domain.Deal

	for _, batch := range batches {
		if batch.err != nil {
			a.logger.WarnContext(ctx, "skipping failed polygon",
				slog.String("polygon_id", batch.polygonID),
				slog.String("error", batch.err.Error()),
			)
			continue
		}
		for _, deal := range batch.street {
			if seen[deal.DedupKey()] {
				continue
			}
			seen[deal.DedupKey()] = true
			deal.SourcePolygon = batch.polygonID
			if a.matcher.SameBuilding(searchAddress, deal.Address()) {
				deal.Tier = domain.TierSameBuilding
				deal.Source = domain.TierSameBuilding.String()
				building = append(building, deal)
			} else {
				deal.Tier = domain.TierStreet
				deal.Source = domain.TierStreet.String()
				street = append(street, deal)
			}
		}
	}

	for _, batch := range batches {
		if batch.err != nil {
			continue
		}
		for _, deal := range batch.neighborhood {
			if seen[deal.DedupKey()] {
				continue
			}
			seen[deal.DedupKey()] = true
			deal.SourcePolygon = batch.polygonID
			deal.Tier = domain.TierNeighborhood
			deal.Source = domain.TierNeighborhood.String()
			neighborhood = append(neighborhood, deal)
		}
	}

	a.logger.DebugContext(ctx, "deals classified",
		slog.Int("same_building", len(building)),
		slog.Int("street", len(street)),
		slog.Int("neighborhood", len(neighborhood)),
	)

	all := make([]domain.Deal, 0, len(building)+len(street)+len(neighborhood))
	all = append(all, building...)
	all = append(all, street...)
	all = append(all, neighborhood...)
	return all
}

// OrderByTierAndDate sorts deals by tier ascending and by date descending
// within each tier. Two stable passes keep equal elements in their original
// relative order.
func OrderByTierAndDate(deals []domain.Deal) {
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].Date.After(deals[j].Date)
	})
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].Tier < deals[j].Tier
	})
}

// uniquePolygonIDs extracts the distinct source polygons of radius results,
// sorted for deterministic fetch order
func uniquePolygonIDs(deals []domain.Deal) []string {
	set := map[string]bool{}
	for _, d := range deals {
		if d.SourcePolygon != "" {
			set[d.SourcePolygon] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
