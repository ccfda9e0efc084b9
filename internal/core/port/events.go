package port

import (
	"context"

	"github.com/sashasoft90/c3po/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserUpdated(ctx context.Context, event domain.UserUpdatedEvent) error
	PublishAppointmentEvent(ctx context.Context, event domain.AppointmentEvent) error
}
