package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *red.Client) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return server, client
}

type stubUserRepository struct {
	mu     sync.Mutex
	users  map[int64]domain.User
	nextID int64

	getByIDCalls int
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{users: make(map[int64]domain.User)}
}

func (r *stubUserRepository) Create(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return nil, repository.ErrAlreadyExists
		}
	}

	r.nextID++
	user.ID = r.nextID
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user

	created := user
	return &created, nil
}

func (r *stubUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.getByIDCalls++
	if user, ok := r.users[id]; ok {
		copied := user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepository) Update(_ context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.Phone != nil {
		user.Phone = update.Phone
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user

	copied := user
	return &copied, nil
}

func (r *stubUserRepository) List(_ context.Context, skip, limit int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var users []domain.User
	for i, id := range ids {
		if i < skip {
			continue
		}
		if len(users) >= limit {
			break
		}
		users = append(users, r.users[id])
	}
	return users, nil
}

// seed inserts a user directly for test setup and returns its id.
func (r *stubUserRepository) seed(user domain.User) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	user.ID = r.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user.ID
}

type stubAppointmentRepository struct {
	mu           sync.Mutex
	appointments map[int64]domain.Appointment
	nextID       int64

	listCalls int
}

func newStubAppointmentRepository() *stubAppointmentRepository {
	return &stubAppointmentRepository{appointments: make(map[int64]domain.Appointment)}
}

func (r *stubAppointmentRepository) Create(_ context.Context, appointment domain.Appointment) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	appointment.ID = r.nextID
	if appointment.Status == "" {
		appointment.Status = domain.AppointmentPending
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	r.appointments[appointment.ID] = appointment

	created := appointment
	return &created, nil
}

func (r *stubAppointmentRepository) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if appointment, ok := r.appointments[id]; ok {
		copied := appointment
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubAppointmentRepository) ListByOwner(_ context.Context, ownerID int64, skip, limit int) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listCalls++

	var owned []domain.Appointment
	for _, appointment := range r.appointments {
		if appointment.UserID == ownerID {
			owned = append(owned, appointment)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].StartTime.Before(owned[j].StartTime) })

	if skip >= len(owned) {
		return nil, nil
	}
	owned = owned[skip:]
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (r *stubAppointmentRepository) Update(_ context.Context, id int64, update domain.AppointmentUpdate) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if update.Title != nil {
		appointment.Title = *update.Title
	}
	if update.Description != nil {
		appointment.Description = update.Description
	}
	if update.StartTime != nil {
		appointment.StartTime = *update.StartTime
	}
	if update.EndTime != nil {
		appointment.EndTime = *update.EndTime
	}
	if update.Status != nil {
		appointment.Status = *update.Status
	}
	if update.Notes != nil {
		appointment.Notes = update.Notes
	}
	appointment.UpdatedAt = time.Now().UTC()
	r.appointments[id] = appointment

	copied := appointment
	return &copied, nil
}

func (r *stubAppointmentRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.appointments, id)
	return nil
}

type recordingPublisher struct {
	mu           sync.Mutex
	registered   []domain.UserRegisteredEvent
	updated      []domain.UserUpdatedEvent
	appointments []domain.AppointmentEvent
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *recordingPublisher) PublishUserUpdated(_ context.Context, event domain.UserUpdatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, event)
	return nil
}

func (p *recordingPublisher) PublishAppointmentEvent(_ context.Context, event domain.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appointments = append(p.appointments, event)
	return nil
}
