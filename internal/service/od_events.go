package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

// OD event types; each is published on "<prefix>.<type>".
const (
	ODEventSubmitted     = "submitted"
	ODEventStatusChanged = "status_changed"
)

// ODEvent announces a change to an OD request.
type ODEvent struct {
	Type           string          `json:"type"`
	RequestID      string          `json:"request_id"`
	RollNo         string          `json:"roll_no"`
	Status         models.ODStatus `json:"status"`
	PreviousStatus models.ODStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// ODEventPublisher delivers OD events to interested consumers.
type ODEventPublisher interface {
	Publish(ctx context.Context, event ODEvent) error
}

// NATSEventPublisher publishes OD events as JSON to NATS subjects.
type NATSEventPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSEventPublisher constructs a publisher writing to "<prefix>.<type>".
func NewNATSEventPublisher(conn *nats.Conn, prefix string) *NATSEventPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "od.requests"
	}
	return &NATSEventPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject used for the given event type.
func (p *NATSEventPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish marshals the event and hands it to the NATS connection.
func (p *NATSEventPublisher) Publish(_ context.Context, event ODEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal od event: %w", err)
	}
	return p.conn.Publish(p.Subject(event.Type), payload)
}

// LogEventPublisher records events in the log when no broker is configured.
type LogEventPublisher struct {
	logger zerolog.Logger
}

// NewLogEventPublisher constructs a logging publisher.
func NewLogEventPublisher(logger zerolog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger.With().Str("component", "od_events").Logger()}
}

// Publish logs the event and returns nil.
func (l *LogEventPublisher) Publish(_ context.Context, event ODEvent) error {
	l.logger.Debug().
		Str("event", event.Type).
		Str("od_request_id", event.RequestID).
		Str("status", event.Status.String()).
		Msg("od event")
	return nil
}
