package ports

import (
	"context"

	"github.com/aldatz/topagune/internal/core/domain"
)

// MeetingRepository persists meetings and their participants.
type MeetingRepository interface {
	Create(ctx context.Context, m *domain.Meeting) error
	GetByID(ctx context.Context, id string) (*domain.Meeting, error)
	AddParticipant(ctx context.Context, p *domain.Participant) error
	ListParticipants(ctx context.Context, meetingID string) ([]domain.Participant, error)
}

// ItineraryRepository persists itinerary stops for a meeting.
type ItineraryRepository interface {
	// ReplaceCourse atomically replaces every stop of the meeting except
	// the meeting-point marker row, which is never deleted here.
	ReplaceCourse(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error

	// ListStops returns the persisted stops ordered by position, with the
	// meeting-point marker first when present.
	ListStops(ctx context.Context, meetingID string) ([]domain.ItineraryStop, error)

	// UpsertMeetingPoint creates or updates the single meeting-point
	// marker row for the meeting.
	UpsertMeetingPoint(ctx context.Context, meetingID string, stop domain.ItineraryStop) error
}
