package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aldatz/topagune/internal/core/domain"
)

// Subjects published by the synthesis engine. The WebSocket relay
// subscribes to meet.> and forwards everything.
const (
	SubjectPointResolved      = "meet.point.resolved"
	SubjectSynthesisCompleted = "meet.synthesis.completed"
	SubjectSynthesisFailed    = "meet.synthesis.failed"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "MEET_EVENTS",
		Subjects:  []string{"meet.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

type pointResolvedEvent struct {
	MeetingID string                       `json:"meeting_id"`
	Point     domain.MeetingPointCandidate `json:"point"`
	At        time.Time                    `json:"at"`
}

type synthesisCompletedEvent struct {
	MeetingID string                 `json:"meeting_id"`
	StopCount int                    `json:"stop_count"`
	Stops     []domain.ItineraryStop `json:"stops"`
	At        time.Time              `json:"at"`
}

type synthesisFailedEvent struct {
	MeetingID string    `json:"meeting_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (p *Publisher) PublishMeetingPointResolved(ctx context.Context, meetingID string, c domain.MeetingPointCandidate) error {
	return p.publish(SubjectPointResolved, pointResolvedEvent{
		MeetingID: meetingID,
		Point:     c,
		At:        time.Now().UTC(),
	})
}

func (p *Publisher) PublishSynthesisCompleted(ctx context.Context, meetingID string, stops []domain.ItineraryStop) error {
	return p.publish(SubjectSynthesisCompleted, synthesisCompletedEvent{
		MeetingID: meetingID,
		StopCount: len(stops),
		Stops:     stops,
		At:        time.Now().UTC(),
	})
}

func (p *Publisher) PublishSynthesisFailed(ctx context.Context, meetingID string, reason string) error {
	return p.publish(SubjectSynthesisFailed, synthesisFailedEvent{
		MeetingID: meetingID,
		Reason:    reason,
		At:        time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
