package ports

import (
	"context"

	"github.com/aldatz/topagune/internal/core/domain"
)

// VenueSearcher finds venues around a point via the external places
// provider.
type VenueSearcher interface {
	// SearchVenues returns up to limit candidates matching the keyword
	// and/or category within radiusMeters of center, filtered to a
	// minimum rating when minRating > 0.
	SearchVenues(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword string, category string, minRating float64, limit int) ([]domain.VenueCandidate, error)

	// SearchStations returns transit-station venues within radiusMeters.
	SearchStations(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]domain.VenueCandidate, error)
}

// TravelTimeProvider answers point-to-point travel queries for one mode.
type TravelTimeProvider interface {
	GetTravelTime(ctx context.Context, start, goal domain.GeoPoint, mode domain.TransportMode) (domain.TravelEstimate, error)
}

// Geocoder resolves a coordinate to a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p domain.GeoPoint) (string, error)
}

// EventPublisher publishes synthesis lifecycle events to a message broker.
type EventPublisher interface {
	PublishMeetingPointResolved(ctx context.Context, meetingID string, c domain.MeetingPointCandidate) error
	PublishSynthesisCompleted(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error
	PublishSynthesisFailed(ctx context.Context, meetingID string, reason string) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
