package domain

import (
	"time"
)

// TransportMode is a participant's preferred way of getting around.
type TransportMode string

const (
	ModeWalking     TransportMode = "walking"
	ModeTransit     TransportMode = "transit"
	ModeDriving     TransportMode = "driving"
	ModeUnspecified TransportMode = "unspecified"
)

// StopCategory classifies an itinerary stop or a planned step.
type StopCategory string

const (
	CategoryCafe         StopCategory = "cafe"
	CategoryRestaurant   StopCategory = "restaurant"
	CategoryBar          StopCategory = "bar"
	CategoryActivity     StopCategory = "activity"
	CategoryShopping     StopCategory = "shopping"
	CategoryCulture      StopCategory = "culture"
	CategoryNature       StopCategory = "nature"
	CategoryRest         StopCategory = "rest"
	CategoryMustVisit    StopCategory = "must-visit"
	CategoryMeetingPoint StopCategory = "meeting-point"
)

// Meeting is a planned gathering of a group of people.
type Meeting struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Purposes    []string  `json:"purposes"`
	Vibes       []string  `json:"vibes,omitempty"`
	WithWhom    string    `json:"with_whom,omitempty"`
	BudgetTier  int       `json:"budget_tier"` // 1 (cheap) .. 4 (splurge)
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"`
}

// Participant is one member of a meeting. Start may be nil when the
// participant has not shared a location yet.
type Participant struct {
	ID          string        `json:"id"`
	MeetingID   string        `json:"meeting_id"`
	Name        string        `json:"name"`
	Start       *GeoPoint     `json:"start,omitempty"`
	Mode        TransportMode `json:"mode"`
	Preferences []string      `json:"preferences,omitempty"` // free-text activity/subcategory hints
	CreatedAt   time.Time     `json:"created_at"`
}

// GroupProfile is the read-only view over a meeting and its participants
// that one synthesis run consumes.
type GroupProfile struct {
	Purposes    []string
	Vibes       []string
	WithWhom    string
	BudgetTier  int
	DurationMin int
	Preferences []string        // aggregated participant preferences, input order preserved
	Modes       []TransportMode // one entry per participant
}

// MajorityMode returns the transport mode preferred by the largest share of
// participants, ignoring unspecified. Ties and empty input resolve to
// ModeUnspecified.
func (g GroupProfile) MajorityMode() TransportMode {
	counts := map[TransportMode]int{}
	for _, m := range g.Modes {
		if m == ModeUnspecified || m == "" {
			continue
		}
		counts[m]++
	}
	best, bestN, tied := ModeUnspecified, 0, false
	for _, m := range []TransportMode{ModeWalking, ModeTransit, ModeDriving} {
		if counts[m] > bestN {
			best, bestN, tied = m, counts[m], false
		} else if counts[m] == bestN && counts[m] > 0 {
			tied = true
		}
	}
	if tied || bestN == 0 {
		return ModeUnspecified
	}
	return best
}

// Step is one ordered request unit produced by the step planner and fed to
// the venue search provider.
type Step struct {
	Query    string       `json:"query"`
	Category StopCategory `json:"category"`
}

// VenueCandidate is a venue returned by the search provider for one step.
// Candidates are ephemeral; they are never persisted directly.
type VenueCandidate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    GeoPoint `json:"location"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"rating_count"`
	Address     string   `json:"address,omitempty"`
	Categories  []string `json:"categories,omitempty"` // raw provider types
}

// MustVisitVenue is a caller-supplied venue that is always retained in the
// final itinerary.
type MustVisitVenue struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Address  string       `json:"address,omitempty"`
	Location GeoPoint     `json:"location"`
	Category StopCategory `json:"category"`
}

// Course is a scored ordered combination of venue candidates, one per step.
type Course struct {
	Venues []VenueCandidate `json:"venues"`
	Score  float64          `json:"score"`
}

// TravelLeg describes how the group moves between two consecutive stops.
// Estimated marks legs derived from haversine fallback rather than a
// provider response.
type TravelLeg struct {
	Mode        TransportMode `json:"mode"`
	DurationMin int           `json:"duration_min"`
	DistanceM   int           `json:"distance_m"`
	Estimated   bool          `json:"estimated,omitempty"`
}

// TravelEstimate is the raw answer from the travel-time provider.
type TravelEstimate struct {
	DurationSec int  `json:"duration_sec"`
	DistanceM   int  `json:"distance_m"`
	OK          bool `json:"ok"`
}

// ItineraryStop is the persisted unit of an itinerary. The first stop of a
// course has no incoming leg. A stop with CategoryMeetingPoint survives
// course replacement.
type ItineraryStop struct {
	ID             string       `json:"id,omitempty"`
	MeetingID      string       `json:"meeting_id,omitempty"`
	Position       int          `json:"position"`
	Name           string       `json:"name"`
	LabelName      string       `json:"label_name,omitempty"`
	Address        string       `json:"address,omitempty"`
	Location       GeoPoint     `json:"location"`
	Category       StopCategory `json:"category"`
	DwellMin       int          `json:"dwell_min"`
	TravelFromPrev *TravelLeg   `json:"travel_from_prev,omitempty"`
	VenueID        string       `json:"venue_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at,omitempty"`
}

// MeetingPointCandidate is one resolver result: a road-network node,
// optionally snapped to a livelier area nearby.
type MeetingPointCandidate struct {
	NodeID       int64    `json:"node_id"`
	Location     GeoPoint `json:"location"`
	MaxDistanceM float64  `json:"max_distance_m"`
	SumDistanceM float64  `json:"sum_distance_m"`
	Address      string   `json:"address,omitempty"`
	AdjustReason string   `json:"adjust_reason,omitempty"`
}
