package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-engine/internal/observability"
)

// Event types published after an engine transition commits.
const (
	EventHomeworkScored         = "homework.scored"
	EventProjectReviewsAssigned = "project.reviews_assigned"
	EventProjectCompleted       = "project.completed"
	EventLeaderboardRebuilt     = "leaderboard.rebuilt"
)

// Event is the envelope written to the message bus.
type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	OccurredAt    time.Time              `json:"occurred_at"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Data          map[string]interface{} `json:"data"`
}

// EventPublisher announces committed engine transitions. Publishing is best
// effort; implementations log failures instead of returning them.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

type natsEventPublisher struct {
	conn   subjectPublisher
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

// NewNATSEventPublisher publishes events on "<prefix>.<event type>". A nil
// connection disables publishing.
func NewNATSEventPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) EventPublisher {
	if conn == nil {
		return noopEventPublisher{}
	}
	return newSubjectEventPublisher(conn, prefix, logger)
}

func newSubjectEventPublisher(conn subjectPublisher, prefix string, logger zerolog.Logger) *natsEventPublisher {
	return &natsEventPublisher{
		conn:   conn,
		prefix: strings.Trim(strings.TrimSpace(prefix), "."),
		logger: logger.With().Str("component", "event_publisher").Logger(),
		now:    time.Now,
	}
}

func (p *natsEventPublisher) subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *natsEventPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	event := Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		OccurredAt:    p.now().UTC(),
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		Data:          data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to encode event")
		return
	}

	if err := p.conn.Publish(p.subject(eventType), payload); err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
		return
	}

	p.logger.Debug().Str("event_id", event.ID).Str("event_type", eventType).Msg("event published")
}

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(context.Context, string, map[string]interface{}) {}
