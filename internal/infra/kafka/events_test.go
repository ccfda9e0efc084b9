package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "c3po",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "c3po",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishUserRegistered(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	registeredAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := domain.UserRegisteredEvent{
		EventID:      "event-123",
		UserID:       42,
		Email:        "alice@example.com",
		RegisteredAt: registeredAt,
	}

	if err := publisher.PublishUserRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "c3po.user.registered" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope struct {
			EventID   string            `json:"event_id"`
			EventType string            `json:"event_type"`
			UserID    string            `json:"user_id"`
			Version   string            `json:"version"`
			Metadata  map[string]string `json:"metadata"`
			Payload   struct {
				UserID int64  `json:"user_id"`
				Email  string `json:"email"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}

		if envelope.EventID != "event-123" {
			t.Fatalf("unexpected event id: %s", envelope.EventID)
		}
		if envelope.EventType != "user.registered" {
			t.Fatalf("unexpected event type: %s", envelope.EventType)
		}
		if envelope.UserID != "42" {
			t.Fatalf("unexpected envelope user id: %s", envelope.UserID)
		}
		if envelope.Version != schemaVersion {
			t.Fatalf("unexpected schema version: %s", envelope.Version)
		}
		if envelope.Metadata["service"] != "c3po" || envelope.Metadata["environment"] != "test" {
			t.Fatalf("unexpected metadata: %v", envelope.Metadata)
		}
		if envelope.Payload.UserID != 42 || envelope.Payload.Email != "alice@example.com" {
			t.Fatalf("unexpected payload: %+v", envelope.Payload)
		}
	default:
		t.Fatalf("expected message on producer input channel")
	}
}

func TestPublishAppointmentEventTopicPerAction(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	event := domain.AppointmentEvent{
		AppointmentID: 9,
		OwnerID:       42,
		Action:        "deleted",
		OccurredAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := publisher.PublishAppointmentEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishAppointmentEvent returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "c3po.appointment.deleted" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}
	default:
		t.Fatalf("expected message on producer input channel")
	}
}

func TestPublishAssignsEventIDWhenMissing(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	event := domain.UserUpdatedEvent{
		UserID:    7,
		Fields:    []string{"first_name"},
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := publisher.PublishUserUpdated(context.Background(), event); err != nil {
		t.Fatalf("PublishUserUpdated returned error: %v", err)
	}

	msg := <-asyncProducer.input
	bytes, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("Value.Encode returned error: %v", err)
	}

	var envelope struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(bytes, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.EventID == "" {
		t.Fatalf("expected generated event id")
	}
}
