package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"email":         event.Email,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserUpdated logs user.updated events.
func (p *StubPublisher) PublishUserUpdated(_ context.Context, event domain.UserUpdatedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"fields":     event.Fields,
		"updated_at": event.UpdatedAt,
	}
	p.logEvent("user.updated", event.UserID, event.UpdatedAt, payload)
	return nil
}

// PublishAppointmentEvent logs appointment.{created,updated,deleted} events.
func (p *StubPublisher) PublishAppointmentEvent(_ context.Context, event domain.AppointmentEvent) error {
	payload := map[string]any{
		"appointment_id": event.AppointmentID,
		"owner_id":       event.OwnerID,
		"action":         event.Action,
		"occurred_at":    event.OccurredAt,
	}
	p.logEvent("appointment."+event.Action, event.OwnerID, event.OccurredAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
