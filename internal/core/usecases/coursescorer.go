package usecases

import (
	"sort"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/pkg/geospatial"
)

const (
	// DefaultLambda is the travel penalty per meter of chained distance,
	// roughly 0.05 rating points per 100 m.
	DefaultLambda = 0.0005

	// MaxCandidatesPerStep bounds the cross-product enumeration.
	MaxCandidatesPerStep = 5

	// DefaultTopCourses is how many ranked combinations the scorer keeps.
	DefaultTopCourses = 5
)

// ScoreCourses enumerates the cross-product of per-step candidates and
// returns the top-K combinations by score, descending. The score of a
// combination is the sum of ratings minus lambda times the haversine
// length of the full visit chain.
//
// Every step must have at least one candidate; an empty list fails with
// KindNotFound. Per-step lists are truncated to MaxCandidatesPerStep to
// keep the enumeration tractable for arbitrary step counts.
func ScoreCourses(stepCandidates [][]domain.VenueCandidate, lambda float64, topK int) ([]domain.Course, error) {
	if len(stepCandidates) == 0 {
		return nil, domain.E(domain.KindInvalid, "no steps to score")
	}
	if topK <= 0 {
		topK = DefaultTopCourses
	}
	if lambda <= 0 {
		lambda = DefaultLambda
	}

	bounded := make([][]domain.VenueCandidate, len(stepCandidates))
	for i, list := range stepCandidates {
		if len(list) == 0 {
			return nil, domain.E(domain.KindNotFound, "no venue candidates for step %d", i+1)
		}
		if len(list) > MaxCandidatesPerStep {
			list = list[:MaxCandidatesPerStep]
		}
		bounded[i] = list
	}

	var courses []domain.Course
	combo := make([]domain.VenueCandidate, len(bounded))

	var enumerate func(step int)
	enumerate = func(step int) {
		if step == len(bounded) {
			venues := make([]domain.VenueCandidate, len(combo))
			copy(venues, combo)
			courses = append(courses, domain.Course{Venues: venues, Score: scoreCombo(venues, lambda)})
			return
		}
		for _, cand := range bounded[step] {
			combo[step] = cand
			enumerate(step + 1)
		}
	}
	enumerate(0)

	// Stable sort keeps enumeration order for equal scores, which makes
	// the selection deterministic for identical inputs.
	sort.SliceStable(courses, func(i, j int) bool {
		return courses[i].Score > courses[j].Score
	})

	if len(courses) > topK {
		courses = courses[:topK]
	}
	return courses, nil
}

func scoreCombo(venues []domain.VenueCandidate, lambda float64) float64 {
	var ratings float64
	lats := make([]float64, len(venues))
	lons := make([]float64, len(venues))
	for i, v := range venues {
		ratings += v.Rating
		lats[i] = v.Location.Lat
		lons[i] = v.Location.Lon
	}
	return ratings - lambda*geospatial.ChainLength(lats, lons)
}
