package service

import (
	"context"
	"strings"

	"servicehub/internal/config"
	"servicehub/internal/domain"
	"servicehub/internal/geo"
	"servicehub/internal/models"

	"github.com/rs/zerolog"
)

type SearchQuery struct {
	Category   string
	Term       string
	ProviderID string
	Origin     *models.Location
	RadiusKm   float64
	Limit      int
}

type SearchResult struct {
	Listing    *models.Listing      `json:"listing"`
	DistanceKm *float64             `json:"distance_km,omitempty"`
	Rating     models.RatingSummary `json:"rating"`
}

type SearchService struct {
	gw     domain.Gateway
	cfg    config.SearchConfig
	logger *zerolog.Logger
}

func NewSearchService(gw domain.Gateway, cfg config.SearchConfig, logger *zerolog.Logger) *SearchService {
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 25
	}
	if cfg.MaxRadiusKm < cfg.DefaultRadiusKm {
		cfg.MaxRadiusKm = cfg.DefaultRadiusKm
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	return &SearchService{gw: gw, cfg: cfg, logger: nopLogger(logger)}
}

func listingLocation(l *models.Listing) (models.Location, bool) {
	if l.Location == nil {
		return models.Location{}, false
	}
	return *l.Location, true
}

// Search returns active listings matching q. With an origin, listings without a location
// or outside the radius are dropped and the rest are sorted by ascending distance;
// otherwise results are newest first.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if q.Origin != nil && !q.Origin.Valid() {
		return nil, domain.Invalid("origin is out of range")
	}
	if q.RadiusKm < 0 {
		return nil, domain.Invalid("radius must not be negative")
	}

	limit := q.Limit
	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}

	dq := domain.NewQuery().Eq("archived", false).Order("created_at", true)
	if c := strings.ToLower(strings.TrimSpace(q.Category)); c != "" {
		dq = dq.Eq("category", c)
	}
	if q.ProviderID != "" {
		dq = dq.Eq("provider_id", q.ProviderID)
	}
	listings, err := s.gw.ListListings(ctx, dq)
	if err != nil {
		return nil, err
	}

	if term := strings.ToLower(strings.TrimSpace(q.Term)); term != "" {
		filtered := listings[:0]
		for _, l := range listings {
			if strings.Contains(strings.ToLower(l.Title), term) || strings.Contains(strings.ToLower(l.Description), term) {
				filtered = append(filtered, l)
			}
		}
		listings = filtered
	}

	var results []SearchResult
	if q.Origin != nil {
		radius := q.RadiusKm
		if radius == 0 {
			radius = s.cfg.DefaultRadiusKm
		}
		if radius > s.cfg.MaxRadiusKm {
			radius = s.cfg.MaxRadiusKm
		}
		for _, r := range geo.WithinRadius(listings, *q.Origin, radius, listingLocation) {
			d := r.DistanceKm
			results = append(results, SearchResult{Listing: r.Item, DistanceKm: &d})
		}
	} else {
		for _, l := range listings {
			results = append(results, SearchResult{Listing: l})
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Listing.ID
	}
	summaries, err := s.gw.RatingSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Rating = summaries[results[i].Listing.ID]
	}

	s.logger.Debug().
		Str("category", q.Category).
		Bool("geo", q.Origin != nil).
		Int("results", len(results)).
		Msg("Search completed")
	return results, nil
}
