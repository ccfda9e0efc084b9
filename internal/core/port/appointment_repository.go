package port

import (
	"context"

	"github.com/sashasoft90/c3po/internal/core/domain"
)

// AppointmentRepository defines persistence operations for appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment domain.Appointment) (*domain.Appointment, error)
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Appointment, error)
	Update(ctx context.Context, id int64, update domain.AppointmentUpdate) (*domain.Appointment, error)
	Delete(ctx context.Context, id int64) error
}
