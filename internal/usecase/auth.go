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
	"github.com/sashasoft90/c3po/internal/infra/config"
	"github.com/sashasoft90/c3po/internal/infra/security"
	"github.com/sashasoft90/c3po/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrInvalidRefreshToken indicates the provided refresh token does not exist or has expired.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidAccessToken indicates the provided access token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the provided access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrTokenRevoked indicates the access token was revoked before its expiry.
	ErrTokenRevoked = errors.New("access token revoked")
)

// TokenPair carries the credentials returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService coordinates authentication and token lifecycle flows.
type AuthService struct {
	cfg           config.JWTSettings
	users         port.UserRepository
	refreshTokens port.RefreshTokenStore
	blacklist     port.TokenBlacklist
	tokenManager  *security.TokenManager
	logger        *zap.Logger
	now           func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg config.JWTSettings,
	users port.UserRepository,
	refreshTokens port.RefreshTokenStore,
	blacklist port.TokenBlacklist,
	tokenManager *security.TokenManager,
	logger *zap.Logger,
) (*AuthService, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if refreshTokens == nil {
		return nil, fmt.Errorf("refresh token store is required")
	}
	if blacklist == nil {
		return nil, fmt.Errorf("token blacklist is required")
	}
	if tokenManager == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		cfg:           cfg,
		users:         users,
		refreshTokens: refreshTokens,
		blacklist:     blacklist,
		tokenManager:  tokenManager,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// WithClock overrides the time source used when computing revocation TTLs.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return TokenPair{}, nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return TokenPair{}, nil, fmt.Errorf("password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, nil, ErrInvalidCredentials
		}
		return TokenPair{}, nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return TokenPair{}, nil, ErrInactiveAccount
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return TokenPair{}, nil, err
	}

	sanitized := user.Sanitized()
	return pair, &sanitized, nil
}

// Refresh exchanges a refresh token for a fresh pair and retires the old one.
//
// The lookup and delete are separate round trips to the store: two
// concurrent calls presenting the same token can both pass the lookup and
// both receive a pair. The second delete is a no-op.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	userID, err := s.refreshTokens.Lookup(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, fmt.Errorf("lookup refresh token: %w", err)
	}

	pair, err := s.issuePair(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.refreshTokens.Delete(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to retire refresh token", zap.Error(err))
	}

	return pair, nil
}

// Logout revokes the access token for its remaining lifetime and retires the
// refresh token. An access token without a jti, or one already past expiry,
// leaves no blacklist entry.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		claims, err := s.tokenManager.Parse(accessToken)
		if err == nil && claims.ID != "" {
			if remaining := claims.Remaining(s.now()); remaining > 0 {
				if err := s.blacklist.Add(ctx, claims.ID, remaining); err != nil {
					return fmt.Errorf("blacklist token: %w", err)
				}
			}
		}
	}

	if refreshToken != "" {
		if err := s.refreshTokens.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}

	return nil
}

// VerifyAccessToken validates signature, lifetime, and revocation state, and
// returns the claims of a usable token.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*security.AccessTokenClaims, error) {
	claims, err := s.tokenManager.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if claims.ID != "" {
		revoked, err := s.blacklist.Contains(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check blacklist: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

func (s *AuthService) issuePair(ctx context.Context, userID int64) (TokenPair, error) {
	accessToken, _, err := s.tokenManager.Issue(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken := uuid.NewString()
	if err := s.refreshTokens.Save(ctx, refreshToken, userID, s.cfg.RefreshTokenTTL); err != nil {
		return TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
