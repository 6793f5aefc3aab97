package usecases

import (
	"context"
	"sync"
	"testing"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/ports"
)

type fakeEvents struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (f *fakeEvents) PublishMeetingPointResolved(ctx context.Context, meetingID string, c domain.MeetingPointCandidate) error {
	return nil
}
func (f *fakeEvents) PublishSynthesisCompleted(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, meetingID)
	return nil
}
func (f *fakeEvents) PublishSynthesisFailed(ctx context.Context, meetingID string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, meetingID)
	return nil
}

func synthesisFixture(venues *fakeVenues, itineraries *fakeItineraries, events *fakeEvents) *SynthesisService {
	meetings := &fakeMeetings{
		getByIDFn: func(ctx context.Context, id string) (*domain.Meeting, error) {
			return &domain.Meeting{ID: id, Title: "Afternoon out", Purposes: []string{"meal"}, BudgetTier: 2, DurationMin: 240}, nil
		},
		listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
			return []domain.Participant{
				{ID: "p1", Start: &domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}},
				{ID: "p2", Start: &domain.GeoPoint{Lat: 43.2639, Lon: -2.9350}},
			}, nil
		},
	}
	if itineraries == nil {
		itineraries = &fakeItineraries{}
	}
	assembler := NewAssembler(venues, &fakeTravel{}, SynthesisConfig{})
	var publisher ports.EventPublisher
	if events != nil {
		publisher = events
	}
	return NewSynthesisService(meetings, itineraries, venues, assembler, publisher, SynthesisConfig{})
}

func stepKeyedVenues() *fakeVenues {
	return &fakeVenues{
		searchVenuesFn: func(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
			// distinct location per query keeps dedup out of the way
			return []domain.VenueCandidate{
				venueAt(keyword, 4.3, center.Lat+0.0005*float64(len(keyword)), center.Lon),
			}, nil
		},
	}
}

func TestBuildItinerary_PersistsAndPublishes(t *testing.T) {
	var persisted []domain.ItineraryStop
	itineraries := &fakeItineraries{
		replaceFn: func(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error {
			persisted = stops
			return nil
		},
	}
	events := &fakeEvents{}
	svc := synthesisFixture(stepKeyedVenues(), itineraries, events)

	stops, err := svc.BuildItinerary(context.Background(), "meeting-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stops) == 0 {
		t.Fatal("expected stops")
	}
	for _, s := range stops {
		if s.MeetingID != "meeting-1" {
			t.Errorf("stop %q missing meeting id", s.Name)
		}
	}
	if len(persisted) != len(stops) {
		t.Errorf("persisted %d stops, returned %d", len(persisted), len(stops))
	}
	if len(events.completed) != 1 {
		t.Errorf("expected one completed event, got %d", len(events.completed))
	}
}

func TestBuildItinerary_AnchorsOnPersistedMeetingPoint(t *testing.T) {
	marker := domain.GeoPoint{Lat: 43.2700, Lon: -2.9200}

	var mu sync.Mutex
	var centers []domain.GeoPoint
	venues := &fakeVenues{
		searchVenuesFn: func(ctx context.Context, center domain.GeoPoint, radiusMeters float64, keyword, category string, minRating float64, limit int) ([]domain.VenueCandidate, error) {
			mu.Lock()
			centers = append(centers, center)
			mu.Unlock()
			return []domain.VenueCandidate{
				venueAt(keyword, 4.3, center.Lat+0.0005*float64(len(keyword)), center.Lon),
			}, nil
		},
	}
	itineraries := &fakeItineraries{
		listStopsFn: func(ctx context.Context, meetingID string) ([]domain.ItineraryStop, error) {
			return []domain.ItineraryStop{
				{Position: 0, Name: "Meeting point", Category: domain.CategoryMeetingPoint, Location: marker},
			}, nil
		},
	}
	svc := synthesisFixture(venues, itineraries, nil)

	if _, err := svc.BuildItinerary(context.Background(), "meeting-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(centers) == 0 {
		t.Fatal("expected venue searches")
	}
	for _, c := range centers {
		if c == marker {
			return
		}
	}
	t.Errorf("expected searches anchored on the persisted marker %+v, got %+v", marker, centers)
}

func TestBuildItinerary_NoVenuesFailsAndPublishes(t *testing.T) {
	events := &fakeEvents{}
	svc := synthesisFixture(&fakeVenues{}, nil, events)

	_, err := svc.BuildItinerary(context.Background(), "meeting-1", nil)
	if err == nil {
		t.Fatal("expected error when every step search comes back empty")
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("expected not_found kind, got %v", domain.KindOf(err))
	}
	if len(events.failed) != 1 {
		t.Errorf("expected one failed event, got %d", len(events.failed))
	}
}

func TestBuildItinerary_InvalidMustVisitRejected(t *testing.T) {
	svc := synthesisFixture(stepKeyedVenues(), nil, nil)

	mustVisit := []domain.MustVisitVenue{
		{Name: "Nowhere", Location: domain.GeoPoint{Lat: 200, Lon: 0}},
	}
	_, err := svc.BuildItinerary(context.Background(), "meeting-1", mustVisit)
	if err == nil {
		t.Fatal("expected error for invalid must-visit coordinate")
	}
	if !domain.IsKind(err, domain.KindInvalid) {
		t.Errorf("expected invalid kind, got %v", domain.KindOf(err))
	}
}

func TestBuildItinerary_NoAnchorWithoutParticipants(t *testing.T) {
	meetings := &fakeMeetings{
		listPartsFn: func(ctx context.Context, meetingID string) ([]domain.Participant, error) {
			return nil, nil
		},
	}
	venues := stepKeyedVenues()
	assembler := NewAssembler(venues, &fakeTravel{}, SynthesisConfig{})
	svc := NewSynthesisService(meetings, &fakeItineraries{}, venues, assembler, nil, SynthesisConfig{})

	_, err := svc.BuildItinerary(context.Background(), "meeting-1", nil)
	if err == nil {
		t.Fatal("expected error without a meeting point or participant starts")
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("expected not_found kind, got %v", domain.KindOf(err))
	}
}
