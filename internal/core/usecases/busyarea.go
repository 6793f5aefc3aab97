package usecases

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/ports"
)

// Adjustment reasons reported back to callers.
const (
	ReasonAlreadyBusy   = "already busy"
	ReasonNoBetterArea  = "no better area found"
	ReasonMovedPrefix   = "moved to "
	ReasonScoreUnknown  = "liveliness unknown"
	stationScoreBonus   = 10.0
	venueCountScoreCoef = 2.0
)

// busyCategories are the provider venue types that count toward a point's
// liveliness.
var busyCategories = []string{
	"cafe", "restaurant", "bar", "bakery", "store", "shopping_mall",
	"supermarket", "convenience_store", "movie_theater",
}

// BusyAreaConfig tunes the adjuster.
type BusyAreaConfig struct {
	BaseRadiusM    float64 // scoring radius around a point
	StationRadiusM float64 // how far away a candidate station may be
	MinScore       float64 // liveliness threshold to leave a point alone
	MinVenueCount  int     // busy-venue threshold to leave a point alone
}

// DefaultBusyAreaConfig returns the tuned defaults.
func DefaultBusyAreaConfig() BusyAreaConfig {
	return BusyAreaConfig{
		BaseRadiusM:    300,
		StationRadiusM: 800,
		MinScore:       12,
		MinVenueCount:  5,
	}
}

// AdjustedPoint is the adjuster's verdict for one input point.
type AdjustedPoint struct {
	Location domain.GeoPoint
	Reason   string
	Score    float64
}

// BusyAreaAdjuster relocates a raw meeting point to a nearby livelier area
// or transit hub when the surroundings look too quiet.
type BusyAreaAdjuster struct {
	venues ports.VenueSearcher
	cfg    BusyAreaConfig
}

// NewBusyAreaAdjuster creates an adjuster over the venue search port.
func NewBusyAreaAdjuster(venues ports.VenueSearcher, cfg BusyAreaConfig) *BusyAreaAdjuster {
	if cfg.BaseRadiusM <= 0 {
		cfg = DefaultBusyAreaConfig()
	}
	return &BusyAreaAdjuster{venues: venues, cfg: cfg}
}

// Adjust scores the point and, when it falls short of both thresholds,
// tries to snap it to the best-scoring station nearby. Provider failures
// degrade to returning the original point; they never abort a run.
func (a *BusyAreaAdjuster) Adjust(ctx context.Context, p domain.GeoPoint) AdjustedPoint {
	if a.venues == nil {
		return AdjustedPoint{Location: p, Reason: ReasonScoreUnknown}
	}
	score, count, err := a.scoreArea(ctx, p)
	if err != nil {
		slog.Warn("busy-area scoring degraded", "error", err, "lat", p.Lat, "lon", p.Lon)
		return AdjustedPoint{Location: p, Reason: ReasonScoreUnknown}
	}
	if score >= a.cfg.MinScore && count >= a.cfg.MinVenueCount {
		return AdjustedPoint{Location: p, Reason: ReasonAlreadyBusy, Score: score}
	}

	stations, err := a.venues.SearchStations(ctx, p, a.cfg.StationRadiusM)
	if err != nil || len(stations) == 0 {
		return AdjustedPoint{Location: p, Reason: ReasonNoBetterArea, Score: score}
	}

	best := AdjustedPoint{Location: p, Reason: ReasonNoBetterArea, Score: score}
	for _, st := range stations {
		stScore, _, err := a.scoreArea(ctx, st.Location)
		if err != nil {
			continue
		}
		// only a strict improvement justifies moving the group
		if stScore > best.Score && stScore > score {
			best = AdjustedPoint{
				Location: st.Location,
				Reason:   ReasonMovedPrefix + st.Name,
				Score:    stScore,
			}
		}
	}
	return best
}

// scoreArea computes liveliness: 10 when a station sits within the base
// radius, plus 2*ln(1+busy venue count) within the same radius.
func (a *BusyAreaAdjuster) scoreArea(ctx context.Context, p domain.GeoPoint) (score float64, busyCount int, err error) {
	stations, err := a.venues.SearchStations(ctx, p, a.cfg.BaseRadiusM)
	if err != nil {
		return 0, 0, err
	}

	candidates, err := a.venues.SearchVenues(ctx, p, a.cfg.BaseRadiusM, "", "", 0, 50)
	if err != nil {
		return 0, 0, err
	}
	for _, c := range candidates {
		if isBusyVenue(c) {
			busyCount++
		}
	}

	score = venueCountScoreCoef * math.Log(1+float64(busyCount))
	if len(stations) > 0 {
		score += stationScoreBonus
	}
	return score, busyCount, nil
}

func isBusyVenue(v domain.VenueCandidate) bool {
	for _, raw := range v.Categories {
		raw = strings.ToLower(raw)
		for _, busy := range busyCategories {
			if raw == busy {
				return true
			}
		}
	}
	return false
}
