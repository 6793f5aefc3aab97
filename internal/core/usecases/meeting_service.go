package usecases

import (
	"context"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/ports"
)

// MeetingService handles meeting and participant bookkeeping.
type MeetingService struct {
	meetings    ports.MeetingRepository
	itineraries ports.ItineraryRepository
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(meetings ports.MeetingRepository, itineraries ports.ItineraryRepository) *MeetingService {
	return &MeetingService{meetings: meetings, itineraries: itineraries}
}

// Create validates and stores a new meeting.
func (s *MeetingService) Create(ctx context.Context, m *domain.Meeting) error {
	if m.Title == "" {
		return domain.E(domain.KindInvalid, "title is required")
	}
	if m.DurationMin <= 0 {
		return domain.E(domain.KindInvalid, "duration_min must be positive")
	}
	if m.BudgetTier == 0 {
		m.BudgetTier = 2
	}
	if m.BudgetTier < 1 || m.BudgetTier > 4 {
		return domain.E(domain.KindInvalid, "budget_tier must be 1-4")
	}
	return s.meetings.Create(ctx, m)
}

// GetByID returns a meeting with its participants.
func (s *MeetingService) GetByID(ctx context.Context, id string) (*domain.Meeting, []domain.Participant, error) {
	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, nil, domain.WrapE(domain.KindNotFound, err, "meeting %s", id)
	}
	participants, err := s.meetings.ListParticipants(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return meeting, participants, nil
}

// AddParticipant validates and stores a participant.
func (s *MeetingService) AddParticipant(ctx context.Context, p *domain.Participant) error {
	if p.MeetingID == "" {
		return domain.E(domain.KindInvalid, "meeting_id is required")
	}
	if p.Start != nil && !p.Start.Valid() {
		return domain.E(domain.KindInvalid, "start coordinate out of range")
	}
	switch p.Mode {
	case domain.ModeWalking, domain.ModeTransit, domain.ModeDriving:
	case "", domain.ModeUnspecified:
		p.Mode = domain.ModeUnspecified
	default:
		return domain.E(domain.KindInvalid, "unknown transport mode %q", p.Mode)
	}
	if _, err := s.meetings.GetByID(ctx, p.MeetingID); err != nil {
		return domain.WrapE(domain.KindNotFound, err, "meeting %s", p.MeetingID)
	}
	return s.meetings.AddParticipant(ctx, p)
}

// Itinerary returns the persisted stops of a meeting.
func (s *MeetingService) Itinerary(ctx context.Context, meetingID string) ([]domain.ItineraryStop, error) {
	return s.itineraries.ListStops(ctx, meetingID)
}
