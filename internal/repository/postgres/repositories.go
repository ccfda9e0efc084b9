package postgres

import (
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users        *UserRepository
	Appointments *AppointmentRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:        NewUserRepository(pool),
		Appointments: NewAppointmentRepository(pool),
	}
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
