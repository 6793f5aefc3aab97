package usecases

import "time"

// SynthesisConfig carries the tunables of one synthesis engine instance.
// Values come from the config file; zero fields fall back to defaults.
type SynthesisConfig struct {
	Lambda                  float64       // travel penalty per meter in course scoring
	TopCourses              int           // ranked combinations kept by the scorer
	CandidatesPerStep       int           // per-step venue candidates requested
	SearchRadiusM           float64       // venue search radius around the anchor point
	MinCandidateSeparationM float64       // meeting-point diversification radius
	SnapRadiusM             float64       // nearest-node snap limit
	WalkingSpeedKmh         float64       // for haversine walking estimates
	RestaurantGapMin        int           // target dwell gap between restaurants
	MinVenueRating          float64       // rating floor passed to the provider
	ExternalTimeout         time.Duration // per external call
	FullScanNodeLimit       int           // resolver scans all nodes below this size
}

// DefaultSynthesisConfig returns the tuned defaults.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		Lambda:                  DefaultLambda,
		TopCourses:              DefaultTopCourses,
		CandidatesPerStep:       MaxCandidatesPerStep,
		SearchRadiusM:           1200,
		MinCandidateSeparationM: 400,
		SnapRadiusM:             2000,
		WalkingSpeedKmh:         4.8,
		RestaurantGapMin:        300,
		MinVenueRating:          3.5,
		ExternalTimeout:         5 * time.Second,
		FullScanNodeLimit:       50000,
	}
}

// withDefaults fills zero fields from the default config.
func (c SynthesisConfig) withDefaults() SynthesisConfig {
	d := DefaultSynthesisConfig()
	if c.Lambda <= 0 {
		c.Lambda = d.Lambda
	}
	if c.TopCourses <= 0 {
		c.TopCourses = d.TopCourses
	}
	if c.CandidatesPerStep <= 0 {
		c.CandidatesPerStep = d.CandidatesPerStep
	}
	if c.SearchRadiusM <= 0 {
		c.SearchRadiusM = d.SearchRadiusM
	}
	if c.MinCandidateSeparationM <= 0 {
		c.MinCandidateSeparationM = d.MinCandidateSeparationM
	}
	if c.SnapRadiusM <= 0 {
		c.SnapRadiusM = d.SnapRadiusM
	}
	if c.WalkingSpeedKmh <= 0 {
		c.WalkingSpeedKmh = d.WalkingSpeedKmh
	}
	if c.RestaurantGapMin <= 0 {
		c.RestaurantGapMin = d.RestaurantGapMin
	}
	if c.ExternalTimeout <= 0 {
		c.ExternalTimeout = d.ExternalTimeout
	}
	if c.FullScanNodeLimit <= 0 {
		c.FullScanNodeLimit = d.FullScanNodeLimit
	}
	return c
}
