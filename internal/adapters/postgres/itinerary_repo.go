package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aldatz/topagune/internal/core/domain"
)

// ItineraryRepo implements ports.ItineraryRepository with pgx.
type ItineraryRepo struct {
	db *DB
}

// NewItineraryRepo creates a new ItineraryRepo.
func NewItineraryRepo(db *DB) *ItineraryRepo {
	return &ItineraryRepo{db: db}
}

// ReplaceCourse swaps out every stop of the meeting in one transaction.
// The meeting-point marker row is left untouched.
func (r *ItineraryRepo) ReplaceCourse(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM itinerary_stops
		WHERE meeting_id = $1 AND category <> 'meeting-point'
	`, meetingID); err != nil {
		return fmt.Errorf("clear stops: %w", err)
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, s := range stops {
		if s.Category == domain.CategoryMeetingPoint {
			continue
		}
		leg, err := marshalLeg(s.TravelFromPrev)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO itinerary_stops
				(meeting_id, position, name, label_name, address, lat, lon,
				 category, dwell_min, travel_from_prev, venue_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, meetingID, s.Position, s.Name, s.LabelName, s.Address,
			s.Location.Lat, s.Location.Lon,
			string(s.Category), s.DwellMin, leg, s.VenueID)
		queued++
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert stop: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListStops returns the persisted stops ordered by position. The
// meeting-point marker sorts first because it always holds position 0.
func (r *ItineraryRepo) ListStops(ctx context.Context, meetingID string) ([]domain.ItineraryStop, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, meeting_id, position, name, COALESCE(label_name, ''),
		       COALESCE(address, ''), lat, lon, category, dwell_min,
		       travel_from_prev, COALESCE(venue_id, ''), created_at
		FROM itinerary_stops
		WHERE meeting_id = $1
		ORDER BY position, created_at
	`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []domain.ItineraryStop
	for rows.Next() {
		var s domain.ItineraryStop
		var category string
		var leg []byte
		if err := rows.Scan(
			&s.ID, &s.MeetingID, &s.Position, &s.Name, &s.LabelName,
			&s.Address, &s.Location.Lat, &s.Location.Lon, &category, &s.DwellMin,
			&leg, &s.VenueID, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.Category = domain.StopCategory(category)
		if len(leg) > 0 {
			var tl domain.TravelLeg
			if err := json.Unmarshal(leg, &tl); err == nil {
				s.TravelFromPrev = &tl
			}
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// UpsertMeetingPoint creates or updates the single marker row.
func (r *ItineraryRepo) UpsertMeetingPoint(ctx context.Context, meetingID string, stop domain.ItineraryStop) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO itinerary_stops
			(meeting_id, position, name, label_name, address, lat, lon,
			 category, dwell_min, venue_id)
		VALUES ($1, 0, $2, $3, $4, $5, $6, 'meeting-point', 0, $7)
		ON CONFLICT (meeting_id) WHERE category = 'meeting-point' DO UPDATE
		SET name = EXCLUDED.name, label_name = EXCLUDED.label_name,
		    address = EXCLUDED.address, lat = EXCLUDED.lat, lon = EXCLUDED.lon,
		    venue_id = EXCLUDED.venue_id
	`, meetingID, stop.Name, stop.LabelName, stop.Address,
		stop.Location.Lat, stop.Location.Lon, stop.VenueID)
	return err
}

func marshalLeg(leg *domain.TravelLeg) ([]byte, error) {
	if leg == nil {
		return nil, nil
	}
	b, err := json.Marshal(leg)
	if err != nil {
		return nil, fmt.Errorf("marshal travel leg: %w", err)
	}
	return b, nil
}
