package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/domain"
	redisrepo "github.com/sashasoft90/c3po/internal/repository/redis"
)

func newAppointmentService(t *testing.T) (*AppointmentService, *stubAppointmentRepository, *recordingPublisher, *miniredis.Miniredis) {
	t.Helper()

	server, client := newTestRedis(t)
	appointments := newStubAppointmentRepository()
	publisher := &recordingPublisher{}
	listCache := redisrepo.NewCacheService(client, "appointments", zap.NewNop())

	service, err := NewAppointmentService(appointments, listCache, publisher, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppointmentService: %v", err)
	}

	return service, appointments, publisher, server
}

func testActor(id int64, role domain.UserRole) *domain.User {
	return &domain.User{ID: id, Role: role, IsActive: true}
}

func seedAppointments(t *testing.T, service *AppointmentService, owner *domain.User, count int) {
	t.Helper()

	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		start := base.Add(time.Duration(i) * 24 * time.Hour)
		_, err := service.Create(context.Background(), owner, CreateAppointmentInput{
			Title:     fmt.Sprintf("Visit %d", i+1),
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("seed appointment %d: %v", i, err)
		}
	}
}

func TestCreateValidatesTimeRange(t *testing.T) {
	service, _, _, _ := newAppointmentService(t)
	owner := testActor(42, domain.RoleUser)

	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	_, err := service.Create(context.Background(), owner, CreateAppointmentInput{
		Title:     "Backwards",
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestListCachesEachPage(t *testing.T) {
	service, repo, _, server := newAppointmentService(t)
	owner := testActor(42, domain.RoleUser)

	seedAppointments(t, service, owner, 5)
	repo.listCalls = 0

	pages := []struct{ skip, limit int }{
		{0, 2},
		{2, 2},
		{4, 2},
	}

	for _, page := range pages {
		if _, err := service.List(context.Background(), owner, owner.ID, page.skip, page.limit); err != nil {
			t.Fatalf("List(%d,%d) returned error: %v", page.skip, page.limit, err)
		}
	}
	if repo.listCalls != 3 {
		t.Fatalf("expected 3 repository hits for 3 distinct pages, got %d", repo.listCalls)
	}

	// Each page lives under its own pagination-qualified key.
	for _, page := range pages {
		key := fmt.Sprintf("appointments:user:%d:skip:%d:limit:%d", owner.ID, page.skip, page.limit)
		if !server.Exists(key) {
			t.Fatalf("expected cache key %s", key)
		}
		if ttl := server.TTL(key); ttl <= 0 || ttl > 60*time.Second {
			t.Fatalf("expected bounded page TTL, got %s", ttl)
		}
	}

	// Replaying the same pages is served entirely from the cache.
	for _, page := range pages {
		if _, err := service.List(context.Background(), owner, owner.ID, page.skip, page.limit); err != nil {
			t.Fatalf("cached List returned error: %v", err)
		}
	}
	if repo.listCalls != 3 {
		t.Fatalf("expected cached replays to skip the repository, got %d hits", repo.listCalls)
	}
}

func TestWriteInvalidatesEveryOwnerPage(t *testing.T) {
	service, repo, _, server := newAppointmentService(t)
	owner := testActor(42, domain.RoleUser)
	other := testActor(77, domain.RoleUser)

	seedAppointments(t, service, owner, 5)
	seedAppointments(t, service, other, 2)

	// Prime three pages for the owner and one for the bystander.
	for _, page := range []struct{ skip, limit int }{{0, 2}, {2, 2}, {4, 2}} {
		if _, err := service.List(context.Background(), owner, owner.ID, page.skip, page.limit); err != nil {
			t.Fatalf("prime page: %v", err)
		}
	}
	if _, err := service.List(context.Background(), other, other.ID, 0, 10); err != nil {
		t.Fatalf("prime bystander page: %v", err)
	}

	appointments, err := service.List(context.Background(), owner, owner.ID, 0, 2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if err := service.Delete(context.Background(), owner, appointments[0].ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	ownerPrefix := fmt.Sprintf("appointments:user:%d:", owner.ID)
	for _, key := range server.Keys() {
		if strings.HasPrefix(key, ownerPrefix) {
			t.Fatalf("expected all owner pages evicted, found %s", key)
		}
	}

	// The other owner's cached page survives.
	bystanderKey := fmt.Sprintf("appointments:user:%d:skip:0:limit:10", other.ID)
	if !server.Exists(bystanderKey) {
		t.Fatalf("expected bystander page to survive invalidation")
	}

	// A fresh list rebuilds from the repository without the deleted row.
	repo.listCalls = 0
	refreshed, err := service.List(context.Background(), owner, owner.ID, 0, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected repository rebuild after invalidation")
	}
	if len(refreshed) != 4 {
		t.Fatalf("expected 4 appointments after delete, got %d", len(refreshed))
	}
}

func TestUpdateInvalidatesOwnerPages(t *testing.T) {
	service, _, publisher, server := newAppointmentService(t)
	owner := testActor(42, domain.RoleUser)

	seedAppointments(t, service, owner, 1)
	listed, err := service.List(context.Background(), owner, owner.ID, 0, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	status := domain.AppointmentConfirmed
	if _, err := service.Update(context.Background(), owner, listed[0].ID, domain.AppointmentUpdate{Status: &status}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	key := fmt.Sprintf("appointments:user:%d:skip:0:limit:10", owner.ID)
	if server.Exists(key) {
		t.Fatalf("expected cached page to be evicted after update")
	}

	var actions []string
	for _, event := range publisher.appointments {
		actions = append(actions, event.Action)
	}
	if len(actions) != 2 || actions[0] != "created" || actions[1] != "updated" {
		t.Fatalf("unexpected event actions: %v", actions)
	}
}

func TestOwnershipEnforcement(t *testing.T) {
	service, _, _, _ := newAppointmentService(t)
	owner := testActor(42, domain.RoleUser)
	stranger := testActor(77, domain.RoleUser)
	staff := testActor(99, domain.RoleStaff)

	seedAppointments(t, service, owner, 1)
	listed, err := service.List(context.Background(), owner, owner.ID, 0, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	id := listed[0].ID

	if _, err := service.Get(context.Background(), stranger, id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
	if _, err := service.List(context.Background(), stranger, owner.ID, 0, 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden listing another owner, got %v", err)
	}

	if _, err := service.Get(context.Background(), staff, id); err != nil {
		t.Fatalf("expected staff access, got %v", err)
	}
	if _, err := service.List(context.Background(), staff, owner.ID, 0, 10); err != nil {
		t.Fatalf("expected staff to list any owner, got %v", err)
	}

	// Deletion is stricter than read or update: staff may inspect any
	// owner's appointments but only the owner or an admin may remove one.
	if err := service.Delete(context.Background(), staff, id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for staff delete, got %v", err)
	}
	if _, err := service.Get(context.Background(), owner, id); err != nil {
		t.Fatalf("appointment should survive forbidden delete, got %v", err)
	}

	admin := testActor(1, domain.RoleAdmin)
	if err := service.Delete(context.Background(), admin, id); err != nil {
		t.Fatalf("expected admin delete to succeed, got %v", err)
	}

	seedAppointments(t, service, owner, 1)
	listed, err = service.List(context.Background(), owner, owner.ID, 0, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if err := service.Delete(context.Background(), owner, listed[0].ID); err != nil {
		t.Fatalf("expected owner delete to succeed, got %v", err)
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	service, _, _, _ := newAppointmentService(t)
	owner := testActor(42, domain.RoleUser)

	seedAppointments(t, service, owner, 1)
	listed, err := service.List(context.Background(), owner, owner.ID, 0, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	bogus := domain.AppointmentStatus("postponed")
	if _, err := service.Update(context.Background(), owner, listed[0].ID, domain.AppointmentUpdate{Status: &bogus}); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestGetUnknownAppointment(t *testing.T) {
	service, _, _, _ := newAppointmentService(t)

	if _, err := service.Get(context.Background(), testActor(1, domain.RoleAdmin), 404); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestConfiguredListCacheTTLOverridesDefault(t *testing.T) {
	service, _, _, server := newAppointmentService(t)
	service.WithListCacheTTL(5 * time.Second)
	owner := testActor(42, domain.RoleUser)

	seedAppointments(t, service, owner, 1)
	if _, err := service.List(context.Background(), owner, owner.ID, 0, 10); err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	key := fmt.Sprintf("appointments:user:%d:skip:0:limit:10", owner.ID)
	if ttl := server.TTL(key); ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("expected configured 5s TTL bound, got %s", ttl)
	}
}
