package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/ports"
	"github.com/aldatz/topagune/internal/pkg/metrics"
)

// SynthesisService runs one full itinerary synthesis per request: plan
// steps, fan out venue searches, score courses, assemble, persist.
type SynthesisService struct {
	meetings    ports.MeetingRepository
	itineraries ports.ItineraryRepository
	venues      ports.VenueSearcher
	assembler   *Assembler
	events      ports.EventPublisher
	cfg         SynthesisConfig
}

// NewSynthesisService wires the synthesis pipeline.
func NewSynthesisService(
	meetings ports.MeetingRepository,
	itineraries ports.ItineraryRepository,
	venues ports.VenueSearcher,
	assembler *Assembler,
	events ports.EventPublisher,
	cfg SynthesisConfig,
) *SynthesisService {
	return &SynthesisService{
		meetings:    meetings,
		itineraries: itineraries,
		venues:      venues,
		assembler:   assembler,
		events:      events,
		cfg:         cfg.withDefaults(),
	}
}

// BuildItinerary synthesizes and persists the itinerary for a meeting.
// An aborted run never touches previously persisted rows.
func (s *SynthesisService) BuildItinerary(ctx context.Context, meetingID string, mustVisit []domain.MustVisitVenue) ([]domain.ItineraryStop, error) {
	started := time.Now()

	stops, err := s.buildItinerary(ctx, meetingID, mustVisit)
	if err != nil {
		metrics.Syntheses.WithLabelValues("failed").Inc()
		if s.events != nil {
			_ = s.events.PublishSynthesisFailed(ctx, meetingID, err.Error())
		}
		return nil, err
	}

	metrics.Syntheses.WithLabelValues("ok").Inc()
	metrics.SynthesisDuration.Observe(time.Since(started).Seconds())
	if s.events != nil {
		if err := s.events.PublishSynthesisCompleted(ctx, meetingID, stops); err != nil {
			slog.Warn("publish synthesis event failed", "meeting_id", meetingID, "error", err)
		}
	}
	return stops, nil
}

func (s *SynthesisService) buildItinerary(ctx context.Context, meetingID string, mustVisit []domain.MustVisitVenue) ([]domain.ItineraryStop, error) {
	for _, mv := range mustVisit {
		if !mv.Location.Valid() {
			return nil, domain.E(domain.KindInvalid, "must-visit venue %q has an invalid coordinate", mv.Name)
		}
	}

	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, domain.WrapE(domain.KindNotFound, err, "meeting %s", meetingID)
	}
	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	profile := buildProfile(meeting, participants)
	steps := PlanSteps(profile)

	anchor, err := s.anchorPoint(ctx, meetingID, participants)
	if err != nil {
		return nil, err
	}

	candidates := s.searchSteps(ctx, anchor, steps)
	courses, err := ScoreCourses(candidates, s.cfg.Lambda, s.cfg.TopCourses)
	if err != nil {
		return nil, err
	}

	stops, err := s.assembler.Assemble(ctx, profile, mustVisit, courses[0], steps)
	if err != nil {
		return nil, err
	}
	for i := range stops {
		stops[i].MeetingID = meetingID
	}

	if err := s.itineraries.ReplaceCourse(ctx, meetingID, stops); err != nil {
		return nil, err
	}
	return stops, nil
}

// anchorPoint picks the venue-search center: the persisted meeting-point
// marker when one exists, otherwise the centroid of participant starts.
func (s *SynthesisService) anchorPoint(ctx context.Context, meetingID string, participants []domain.Participant) (domain.GeoPoint, error) {
	existing, err := s.itineraries.ListStops(ctx, meetingID)
	if err == nil {
		for _, stop := range existing {
			if stop.Category == domain.CategoryMeetingPoint {
				return stop.Location, nil
			}
		}
	}

	coords := make([]domain.GeoPoint, 0, len(participants))
	for _, p := range participants {
		if p.Start != nil && p.Start.Valid() {
			coords = append(coords, *p.Start)
		}
	}
	if len(coords) == 0 {
		return domain.GeoPoint{}, domain.E(domain.KindNotFound, "no meeting point and no participant coordinates")
	}
	return domain.Centroid(coords), nil
}

// searchSteps fans out one venue search per step and joins before
// returning. A failed search yields an empty candidate list for that step;
// the scorer decides whether that aborts the run.
func (s *SynthesisService) searchSteps(ctx context.Context, center domain.GeoPoint, steps []domain.Step) [][]domain.VenueCandidate {
	results := make([][]domain.VenueCandidate, len(steps))

	var wg sync.WaitGroup
	for i, step := range steps {
		wg.Add(1)
		go func(i int, step domain.Step) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
			defer cancel()

			found, err := s.venues.SearchVenues(callCtx, center, s.cfg.SearchRadiusM,
				step.Query, string(step.Category), s.cfg.MinVenueRating, s.cfg.CandidatesPerStep)
			if err != nil {
				slog.Warn("step venue search failed", "step", i+1, "query", step.Query, "error", err)
				return
			}
			results[i] = found
		}(i, step)
	}
	wg.Wait()

	return results
}

// buildProfile derives the read-only group profile for one run.
func buildProfile(m *domain.Meeting, participants []domain.Participant) domain.GroupProfile {
	profile := domain.GroupProfile{
		Purposes:    m.Purposes,
		Vibes:       m.Vibes,
		WithWhom:    m.WithWhom,
		BudgetTier:  m.BudgetTier,
		DurationMin: m.DurationMin,
	}
	for _, p := range participants {
		profile.Preferences = append(profile.Preferences, p.Preferences...)
		profile.Modes = append(profile.Modes, p.Mode)
	}
	return profile
}
