package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/core/port"
	"github.com/sashasoft90/c3po/internal/repository"
)

var (
	// ErrForbidden indicates the actor may not touch the requested appointment.
	ErrForbidden = errors.New("operation not permitted")
	// ErrAppointmentNotFound indicates the requested appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrInvalidTimeRange indicates the appointment ends at or before it starts.
	ErrInvalidTimeRange = errors.New("end time must be after start time")
)

const appointmentListTTL = 60 * time.Second

// CreateAppointmentInput collects the fields required to book an appointment.
type CreateAppointmentInput struct {
	Title       string
	Description *string
	StartTime   time.Time
	EndTime     time.Time
	Notes       *string
}

// AppointmentService manages bookings and the per-owner list cache.
type AppointmentService struct {
	appointments port.AppointmentRepository
	listCache    port.Cache
	publisher    port.EventPublisher
	logger       *zap.Logger
	listTTL      time.Duration
}

// NewAppointmentService constructs an AppointmentService instance.
func NewAppointmentService(
	appointments port.AppointmentRepository,
	listCache port.Cache,
	publisher port.EventPublisher,
	log *zap.Logger,
) (*AppointmentService, error) {
	if appointments == nil {
		return nil, fmt.Errorf("appointment repository is required")
	}
	if listCache == nil {
		return nil, fmt.Errorf("list cache is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &AppointmentService{
		appointments: appointments,
		listCache:    listCache,
		publisher:    publisher,
		logger:       log,
		listTTL:      appointmentListTTL,
	}, nil
}

// WithListCacheTTL overrides the list cache lifetime. Non-positive values
// keep the default.
func (s *AppointmentService) WithListCacheTTL(ttl time.Duration) *AppointmentService {
	if ttl > 0 {
		s.listTTL = ttl
	}
	return s
}

func listCacheKey(ownerID int64, skip, limit int) string {
	return fmt.Sprintf("user:%d:skip:%d:limit:%d", ownerID, skip, limit)
}

func ownerPattern(ownerID int64) string {
	return fmt.Sprintf("user:%d:*", ownerID)
}

// canManage reports whether the actor may read or mutate appointments owned
// by ownerID. Staff and admins see every owner.
func canManage(actor *domain.User, ownerID int64) bool {
	if actor == nil {
		return false
	}
	if actor.ID == ownerID {
		return true
	}
	return actor.Role == domain.RoleStaff || actor.Role == domain.RoleAdmin
}

// Create books an appointment for the actor and evicts their cached pages.
func (s *AppointmentService) Create(ctx context.Context, actor *domain.User, input CreateAppointmentInput) (*domain.Appointment, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	created, err := s.appointments.Create(ctx, domain.Appointment{
		UserID:      actor.ID,
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Notes:       input.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.invalidateOwner(ctx, created.UserID)
	s.publishEvent(ctx, created.ID, created.UserID, "created")

	return created, nil
}

// Get returns a single appointment, enforcing ownership.
func (s *AppointmentService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !canManage(actor, appointment.UserID) {
		return nil, ErrForbidden
	}

	return appointment, nil
}

// List returns a page of the owner's appointments through the list cache.
// Each distinct skip/limit combination is cached under its own key for one
// minute; any write for the owner clears every page at once.
func (s *AppointmentService) List(ctx context.Context, actor *domain.User, ownerID int64, skip, limit int) ([]domain.Appointment, error) {
	if !canManage(actor, ownerID) {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	key := listCacheKey(ownerID, skip, limit)

	var cached []domain.Appointment
	if s.listCache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	appointments, err := s.appointments.ListByOwner(ctx, ownerID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if appointments == nil {
		appointments = []domain.Appointment{}
	}

	s.listCache.Set(ctx, key, appointments, s.listTTL)

	return appointments, nil
}

// Update applies the provided changes and evicts the owner's cached pages.
func (s *AppointmentService) Update(ctx context.Context, actor *domain.User, id int64, update domain.AppointmentUpdate) (*domain.Appointment, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, *update.Status)
	}
	if update.StartTime != nil || update.EndTime != nil {
		start := current.StartTime
		end := current.EndTime
		if update.StartTime != nil {
			start = *update.StartTime
		}
		if update.EndTime != nil {
			end = *update.EndTime
		}
		if !end.After(start) {
			return nil, ErrInvalidTimeRange
		}
	}

	updated, err := s.appointments.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	s.invalidateOwner(ctx, updated.UserID)
	s.publishEvent(ctx, updated.ID, updated.UserID, "updated")

	return updated, nil
}

// Delete removes the appointment and evicts the owner's cached pages.
// Unlike reads and updates, deletion is reserved for the owner and admins;
// staff cannot remove other users' appointments.
func (s *AppointmentService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if actor.ID != current.UserID && actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}

	if err := s.appointments.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("delete appointment: %w", err)
	}

	s.invalidateOwner(ctx, current.UserID)
	s.publishEvent(ctx, id, current.UserID, "deleted")

	return nil
}

// invalidateOwner clears every cached page for the owner, whatever
// pagination produced it.
func (s *AppointmentService) invalidateOwner(ctx context.Context, ownerID int64) {
	removed := s.listCache.ClearPattern(ctx, ownerPattern(ownerID))
	if removed > 0 {
		s.logger.Debug("evicted appointment list pages",
			zap.Int64("owner_id", ownerID),
			zap.Int("pages", removed),
		)
	}
}

func (s *AppointmentService) publishEvent(ctx context.Context, appointmentID, ownerID int64, action string) {
	if s.publisher == nil {
		return
	}

	event := domain.AppointmentEvent{
		EventID:       uuid.NewString(),
		AppointmentID: appointmentID,
		OwnerID:       ownerID,
		Action:        action,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.PublishAppointmentEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish appointment event",
			zap.Int64("appointment_id", appointmentID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
