package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/core/port"
	"github.com/sashasoft90/c3po/internal/infra/logger"
	"github.com/sashasoft90/c3po/internal/infra/security"
	"github.com/sashasoft90/c3po/internal/repository"
)

var (
	// ErrEmailTaken indicates the email is already attached to an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput indicates a malformed or incomplete request payload.
	ErrInvalidInput = errors.New("invalid input")
)

const userCacheTTL = 300 * time.Second

// RegisterInput collects the fields required to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
}

// cachedUser is the schema stored under user:{id}. It deliberately carries
// no credential material; a cached entry that does not decode into this
// shape is treated as a miss and refetched.
type cachedUser struct {
	ID         int64           `json:"id"`
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Phone      *string         `json:"phone,omitempty"`
	Role       domain.UserRole `json:"role"`
	IsActive   bool            `json:"is_active"`
	IsVerified bool            `json:"is_verified"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (c cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:         c.ID,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Phone:      c.Phone,
		Role:       c.Role,
		IsActive:   c.IsActive,
		IsVerified: c.IsVerified,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func toCachedUser(user domain.User) cachedUser {
	return cachedUser{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Phone:      user.Phone,
		Role:       user.Role,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// UserService manages account registration, profiles, and the identity cache.
type UserService struct {
	users     port.UserRepository
	cache     port.Cache
	publisher port.EventPublisher
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewUserService constructs a UserService instance.
func NewUserService(
	users port.UserRepository,
	cache port.Cache,
	publisher port.EventPublisher,
	log *zap.Logger,
) (*UserService, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &UserService{
		users:     users,
		cache:     cache,
		publisher: publisher,
		logger:    log,
		cacheTTL:  userCacheTTL,
	}, nil
}

// WithCacheTTL overrides the identity cache lifetime. Non-positive values
// keep the default.
func (s *UserService) WithCacheTTL(ttl time.Duration) *UserService {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

func userCacheKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Register validates the input, persists the account, and emits a
// registration event. The returned user carries no password hash.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if input.FirstName == "" || input.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}

	validator := security.NewPasswordValidatorWithContext(email, input.FirstName, input.LastName)
	if err := validator.Validate(input.Password); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         domain.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.publisher != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       created.ID,
			Email:        created.Email,
			RegisteredAt: created.CreatedAt,
		}
		if err := s.publisher.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("failed to publish registration event",
				zap.Int64("user_id", created.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", created.ID),
		zap.String("email", logger.MaskEmail(created.Email)),
	)

	sanitized := created.Sanitized()
	return &sanitized, nil
}

// ResolvePrincipal loads the identity for an authenticated user id through
// the read-through cache. Entries live for five minutes; a decode failure
// falls back to the database.
func (s *UserService) ResolvePrincipal(ctx context.Context, userID int64) (*domain.User, error) {
	key := userCacheKey(userID)

	var cached cachedUser
	if s.cache.GetJSON(ctx, key, &cached) && cached.ID == userID {
		return cached.toDomain(), nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	// Deactivated accounts are rejected before the cache is populated, so a
	// disabled identity never gets a cached grace window.
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	s.cache.Set(ctx, key, toCachedUser(*user), s.cacheTTL)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// GetUser returns the account through the same cache path as ResolvePrincipal.
func (s *UserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.ResolvePrincipal(ctx, userID)
}

// UpdateProfile applies the provided changes, evicts the cached identity,
// and emits an update event naming the changed fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, update domain.UserUpdate) (*domain.User, error) {
	fields := changedFields(update)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	if update.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*update.Email))
		if normalized == "" || !strings.Contains(normalized, "@") {
			return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
		}
		update.Email = &normalized
	}

	updated, err := s.users.Update(ctx, userID, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrAlreadyExists):
			return nil, ErrEmailTaken
		default:
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	s.cache.Delete(ctx, userCacheKey(userID))

	if s.publisher != nil {
		event := domain.UserUpdatedEvent{
			EventID:   uuid.NewString(),
			UserID:    userID,
			Fields:    fields,
			UpdatedAt: updated.UpdatedAt,
		}
		if err := s.publisher.PublishUserUpdated(ctx, event); err != nil {
			s.logger.Warn("failed to publish profile update event",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	sanitized := updated.Sanitized()
	return &sanitized, nil
}

// ListUsers returns accounts ordered by id, password hashes stripped.
func (s *UserService) ListUsers(ctx context.Context, skip, limit int) ([]domain.User, error) {
	users, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	sanitized := make([]domain.User, 0, len(users))
	for _, user := range users {
		sanitized = append(sanitized, user.Sanitized())
	}
	return sanitized, nil
}

func changedFields(update domain.UserUpdate) []string {
	var fields []string
	if update.Email != nil {
		fields = append(fields, "email")
	}
	if update.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if update.LastName != nil {
		fields = append(fields, "last_name")
	}
	if update.Phone != nil {
		fields = append(fields, "phone")
	}
	return fields
}
