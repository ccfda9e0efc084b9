package domain

import "time"

// UserRegisteredEvent is emitted after a new account is persisted.
type UserRegisteredEvent struct {
	EventID      string
	UserID       int64
	Email        string
	RegisteredAt time.Time
}

// UserUpdatedEvent is emitted after a profile mutation is committed.
type UserUpdatedEvent struct {
	EventID   string
	UserID    int64
	Fields    []string
	UpdatedAt time.Time
}

// AppointmentEvent is emitted after appointment mutations are committed.
// Action is one of "created", "updated", "deleted".
type AppointmentEvent struct {
	EventID       string
	AppointmentID int64
	OwnerID       int64
	Action        string
	OccurredAt    time.Time
}
