package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/core/port"
	"github.com/sashasoft90/c3po/internal/repository"
)

const appointmentsTable = "appointments"

var appointmentColumns = []string{
	"id",
	"user_id",
	"title",
	"description",
	"start_time",
	"end_time",
	"status",
	"notes",
	"created_at",
	"updated_at",
}

// AppointmentRepository implements port.AppointmentRepository using PostgreSQL.
type AppointmentRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAppointmentRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAppointmentRepository(exec pgExecutor) *AppointmentRepository {
	return &AppointmentRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new appointment row and returns the stored record.
func (r *AppointmentRepository) Create(ctx context.Context, appointment domain.Appointment) (*domain.Appointment, error) {
	var descriptionValue any
	if appointment.Description != nil {
		descriptionValue = *appointment.Description
	}
	var notesValue any
	if appointment.Notes != nil {
		notesValue = *appointment.Notes
	}

	status := appointment.Status
	if status == "" {
		status = domain.AppointmentPending
	}

	stmt, args, err := r.builder.Insert(appointmentsTable).
		Columns("user_id", "title", "description", "start_time", "end_time", "status", "notes").
		Values(appointment.UserID, appointment.Title, descriptionValue, appointment.StartTime, appointment.EndTime, status, notesValue).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert appointment sql: %w", err)
	}

	created := appointment
	created.Status = status
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	return &created, nil
}

// GetByID retrieves an appointment by identifier.
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	stmt, args, err := r.builder.
		Select(appointmentColumns...).
		From(appointmentsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select appointment sql: %w", err)
	}

	return scanAppointmentRow(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByOwner returns appointments for the owning user ordered by start time.
func (r *AppointmentRepository) ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	stmt, args, err := r.builder.
		Select(appointmentColumns...).
		From(appointmentsTable).
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("start_time ASC").
		Offset(uint64(skip)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list appointments sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []domain.Appointment
	for rows.Next() {
		appointment, scanErr := scanAppointmentRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		appointments = append(appointments, *appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appointments, nil
}

// Update applies the non-nil fields of the update and returns the stored record.
func (r *AppointmentRepository) Update(ctx context.Context, id int64, update domain.AppointmentUpdate) (*domain.Appointment, error) {
	builder := r.builder.Update(appointmentsTable).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id})

	if update.Title != nil {
		builder = builder.Set("title", *update.Title)
	}
	if update.Description != nil {
		builder = builder.Set("description", *update.Description)
	}
	if update.StartTime != nil {
		builder = builder.Set("start_time", *update.StartTime)
	}
	if update.EndTime != nil {
		builder = builder.Set("end_time", *update.EndTime)
	}
	if update.Status != nil {
		builder = builder.Set("status", *update.Status)
	}
	if update.Notes != nil {
		builder = builder.Set("notes", *update.Notes)
	}

	stmt, args, err := builder.
		Suffix("RETURNING " + joinColumns(appointmentColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update appointment sql: %w", err)
	}

	return scanAppointmentRow(r.exec.QueryRow(ctx, stmt, args...))
}

// Delete removes the appointment, returning ErrNotFound when no row matched.
func (r *AppointmentRepository) Delete(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.
		Delete(appointmentsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete appointment sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanAppointmentRow(row pgx.Row) (*domain.Appointment, error) {
	var (
		appointment domain.Appointment
		description sql.NullString
		notes       sql.NullString
	)

	if err := row.Scan(
		&appointment.ID,
		&appointment.UserID,
		&appointment.Title,
		&description,
		&appointment.StartTime,
		&appointment.EndTime,
		&appointment.Status,
		&notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}

	if description.Valid {
		val := description.String
		appointment.Description = &val
	}
	if notes.Valid {
		val := notes.String
		appointment.Notes = &val
	}

	return &appointment, nil
}

var _ port.AppointmentRepository = (*AppointmentRepository)(nil)
