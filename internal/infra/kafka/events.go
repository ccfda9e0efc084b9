package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/core/port"
	"github.com/sashasoft90/c3po/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType string, userID int64, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    strconv.FormatInt(userID, 10),
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       int64     `json:"user_id"`
		Email        string    `json:"email"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishUserUpdated publishes user.updated events.
func (p *EventPublisher) PublishUserUpdated(ctx context.Context, event domain.UserUpdatedEvent) error {
	payload := struct {
		UserID    int64     `json:"user_id"`
		Fields    []string  `json:"fields"`
		UpdatedAt time.Time `json:"updated_at"`
	}{
		UserID:    event.UserID,
		Fields:    event.Fields,
		UpdatedAt: event.UpdatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "user.updated", event.UserID, event.UpdatedAt, payload)
}

// PublishAppointmentEvent publishes appointment.{created,updated,deleted} events.
func (p *EventPublisher) PublishAppointmentEvent(ctx context.Context, event domain.AppointmentEvent) error {
	payload := struct {
		AppointmentID int64     `json:"appointment_id"`
		OwnerID       int64     `json:"owner_id"`
		Action        string    `json:"action"`
		OccurredAt    time.Time `json:"occurred_at"`
	}{
		AppointmentID: event.AppointmentID,
		OwnerID:       event.OwnerID,
		Action:        event.Action,
		OccurredAt:    event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "appointment."+event.Action, event.OwnerID, event.OccurredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
