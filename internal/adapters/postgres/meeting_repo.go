package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/aldatz/topagune/internal/core/domain"
)

// MeetingRepo implements ports.MeetingRepository with pgx.
type MeetingRepo struct {
	db *DB
}

// NewMeetingRepo creates a new MeetingRepo.
func NewMeetingRepo(db *DB) *MeetingRepo {
	return &MeetingRepo{db: db}
}

// Create inserts a meeting and fills in its generated ID and timestamp.
func (r *MeetingRepo) Create(ctx context.Context, m *domain.Meeting) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO meetings (title, purposes, vibes, with_whom, budget_tier, duration_min)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, m.Title, m.Purposes, m.Vibes, m.WithWhom, m.BudgetTier, m.DurationMin).
		Scan(&m.ID, &m.CreatedAt)
}

// GetByID returns a meeting by UUID.
func (r *MeetingRepo) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	var m domain.Meeting
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, title, COALESCE(purposes, '{}'), COALESCE(vibes, '{}'),
		       COALESCE(with_whom, ''), budget_tier, duration_min, created_at
		FROM meetings WHERE id = $1
	`, id).Scan(
		&m.ID, &m.Title, &m.Purposes, &m.Vibes,
		&m.WithWhom, &m.BudgetTier, &m.DurationMin, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "meeting %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddParticipant inserts a participant and fills in its generated ID.
func (r *MeetingRepo) AddParticipant(ctx context.Context, p *domain.Participant) error {
	var lat, lon *float64
	if p.Start != nil {
		lat, lon = &p.Start.Lat, &p.Start.Lon
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO participants (meeting_id, name, start_lat, start_lon, mode, preferences)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, p.MeetingID, p.Name, lat, lon, string(p.Mode), p.Preferences).
		Scan(&p.ID, &p.CreatedAt)
}

// ListParticipants returns the participants of a meeting in insertion order.
func (r *MeetingRepo) ListParticipants(ctx context.Context, meetingID string) ([]domain.Participant, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, meeting_id, name, start_lat, start_lon, mode,
		       COALESCE(preferences, '{}'), created_at
		FROM participants
		WHERE meeting_id = $1
		ORDER BY created_at, id
	`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		var lat, lon *float64
		var mode string
		if err := rows.Scan(
			&p.ID, &p.MeetingID, &p.Name, &lat, &lon, &mode,
			&p.Preferences, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			p.Start = &domain.GeoPoint{Lat: *lat, Lon: *lon}
		}
		p.Mode = domain.TransportMode(mode)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
