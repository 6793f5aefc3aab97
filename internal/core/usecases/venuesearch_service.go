package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/ports"
	"github.com/aldatz/topagune/internal/pkg/metrics"
)

// VenueSearchService is a read-through caching wrapper around the places
// provider. Venue inventories move slowly, so short TTLs are safe and save
// a lot of provider quota during reconciliation retries.
type VenueSearchService struct {
	provider ports.VenueSearcher
	cache    ports.CacheService
}

// NewVenueSearchService wraps a provider with an optional cache.
func NewVenueSearchService(provider ports.VenueSearcher, cache ports.CacheService) *VenueSearchService {
	return &VenueSearchService{provider: provider, cache: cache}
}

// SearchVenues queries the provider, serving repeated searches from cache.
func (s *VenueSearchService) SearchVenues(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	key := fmt.Sprintf("venues:%.4f:%.4f:%.0f:%s:%s:%.1f:%d",
		center.Lat, center.Lon, radiusMeters, keyword, category, minRating, limit)
	if cached, ok := s.fromCache(ctx, key, "venues"); ok {
		return cached, nil
	}

	metrics.VenueSearches.WithLabelValues("venues").Inc()
	found, err := s.provider.SearchVenues(ctx, center, radiusMeters, keyword, category, minRating, limit)
	if err != nil {
		metrics.VenueSearchErrors.WithLabelValues("venues").Inc()
		return nil, err
	}

	s.toCache(ctx, key, found, 300)
	return found, nil
}

// SearchStations queries the provider for transit stations.
func (s *VenueSearchService) SearchStations(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]domain.VenueCandidate, error) {
	key := fmt.Sprintf("stations:%.4f:%.4f:%.0f", center.Lat, center.Lon, radiusMeters)
	if cached, ok := s.fromCache(ctx, key, "stations"); ok {
		return cached, nil
	}

	metrics.VenueSearches.WithLabelValues("stations").Inc()
	found, err := s.provider.SearchStations(ctx, center, radiusMeters)
	if err != nil {
		metrics.VenueSearchErrors.WithLabelValues("stations").Inc()
		return nil, err
	}

	// stations basically never move
	s.toCache(ctx, key, found, 3600)
	return found, nil
}

func (s *VenueSearchService) fromCache(ctx context.Context, key, op string) ([]domain.VenueCandidate, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return nil, false
	}
	var venues []domain.VenueCandidate
	if err := json.Unmarshal(data, &venues); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return venues, true
}

func (s *VenueSearchService) toCache(ctx context.Context, key string, venues []domain.VenueCandidate, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(venues); err == nil {
		_ = s.cache.Set(ctx, key, data, ttlSeconds)
	}
}
