package usecases

import (
	"testing"

	"github.com/aldatz/topagune/internal/core/domain"
)

func venueAt(id string, rating float64, lat, lon float64) domain.VenueCandidate {
	return domain.VenueCandidate{
		ID:       id,
		Name:     id,
		Rating:   rating,
		Location: domain.GeoPoint{Lat: lat, Lon: lon},
	}
}

func TestScoreCourses_PicksHighestRated(t *testing.T) {
	base := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	steps := [][]domain.VenueCandidate{
		{
			venueAt("good", 4.8, base.Lat, base.Lon),
			venueAt("ok", 3.9, base.Lat, base.Lon),
		},
		{
			venueAt("second", 4.2, base.Lat, base.Lon),
		},
	}

	courses, err := ScoreCourses(steps, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(courses))
	}
	if courses[0].Venues[0].ID != "good" {
		t.Errorf("expected highest-rated venue first, got %s", courses[0].Venues[0].ID)
	}
	if courses[0].Score <= courses[1].Score {
		t.Errorf("courses not sorted descending: %.3f then %.3f", courses[0].Score, courses[1].Score)
	}
}

func TestScoreCourses_TravelPenaltyBeatsSmallRatingEdge(t *testing.T) {
	base := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	steps := [][]domain.VenueCandidate{
		{
			venueAt("near", 4.0, base.Lat, base.Lon),
			// ~1 km north: 0.5 penalty at the default lambda outweighs +0.2 rating
			venueAt("far", 4.2, base.Lat+0.009, base.Lon),
		},
		{
			venueAt("anchor", 4.0, base.Lat, base.Lon),
		},
	}

	courses, err := ScoreCourses(steps, DefaultLambda, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if courses[0].Venues[0].ID != "near" {
		t.Errorf("expected travel penalty to demote the far venue, got %s", courses[0].Venues[0].ID)
	}
}

func TestScoreCourses_EmptyStepFails(t *testing.T) {
	base := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	steps := [][]domain.VenueCandidate{
		{venueAt("a", 4.0, base.Lat, base.Lon)},
		{},
	}

	_, err := ScoreCourses(steps, 0, 0)
	if err == nil {
		t.Fatal("expected error for empty step")
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("expected not_found kind, got %v", domain.KindOf(err))
	}
}

func TestScoreCourses_NoStepsFails(t *testing.T) {
	_, err := ScoreCourses(nil, 0, 0)
	if err == nil {
		t.Fatal("expected error for zero steps")
	}
	if !domain.IsKind(err, domain.KindInvalid) {
		t.Errorf("expected invalid kind, got %v", domain.KindOf(err))
	}
}

func TestScoreCourses_TopKTruncation(t *testing.T) {
	base := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	var a, b []domain.VenueCandidate
	for i := 0; i < 3; i++ {
		a = append(a, venueAt("a", 4.0+float64(i)*0.1, base.Lat, base.Lon))
		b = append(b, venueAt("b", 4.0+float64(i)*0.1, base.Lat, base.Lon))
	}

	courses, err := ScoreCourses([][]domain.VenueCandidate{a, b}, 0, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 4 {
		t.Errorf("expected 4 courses after truncation, got %d", len(courses))
	}
}

func TestScoreCourses_BoundsCandidatesPerStep(t *testing.T) {
	base := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	var many []domain.VenueCandidate
	for i := 0; i < MaxCandidatesPerStep+3; i++ {
		many = append(many, venueAt("v", 4.0, base.Lat, base.Lon))
	}

	courses, err := ScoreCourses([][]domain.VenueCandidate{many}, 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != MaxCandidatesPerStep {
		t.Errorf("expected %d courses from a truncated step, got %d", MaxCandidatesPerStep, len(courses))
	}
}

func TestScoreCourses_StableForEqualScores(t *testing.T) {
	base := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	steps := [][]domain.VenueCandidate{
		{
			venueAt("first", 4.0, base.Lat, base.Lon),
			venueAt("second", 4.0, base.Lat, base.Lon),
		},
	}

	for i := 0; i < 10; i++ {
		courses, err := ScoreCourses(steps, 0, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if courses[0].Venues[0].ID != "first" {
			t.Fatalf("equal scores must keep enumeration order, got %s", courses[0].Venues[0].ID)
		}
	}
}
