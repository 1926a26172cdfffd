package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/logging"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the basic password policy.
const MinPasswordLength = 6

// Store persists users and refresh tokens. CreateUser reports ErrUserExists
// for a taken username; lookups report ErrUserNotFound and ErrTokenNotFound.
// RevokeRefreshToken only revokes a live token and reports ErrTokenNotFound
// when the token is missing or already revoked.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, userID uint, hash []byte) error
	RevokeUserRefreshTokens(ctx context.Context, userID uint) error
}

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service registers users, checks credentials and issues tokens.
type Service struct {
	store      Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
	log        *slog.Logger
	now        func() time.Time
}

func NewService(store Store, cfg Config, log *slog.Logger) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:      store,
		secret:     cfg.Secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		cost:       cfg.BcryptCost,
		log:        logging.WithComponent(log, logging.ComponentAccount),
		now:        time.Now,
	}
}

// SetClock replaces time.Now, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &InputError{Field: "username", Msg: "username required"}
	}
	if len(password) < MinPasswordLength {
		return nil, &InputError{Field: "password", Msg: fmt.Sprintf("password too short (min %d)", MinPasswordLength)}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: username, HashedPassword: hashed}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user registered", logging.FieldUserID, u.ID)
	return u, nil
}

// Authenticate checks username and password. Every failure is reported as
// ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.log.ErrorContext(ctx, "user lookup failed", logging.FieldError, err)
		}
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues an access token plus a refresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, Tokens, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, Tokens{}, err
	}
	tokens, err := s.issue(ctx, u)
	if err != nil {
		return nil, Tokens{}, err
	}
	return u, tokens, nil
}

// Refresh exchanges a refresh token for a new access token. The presented
// refresh token is revoked and replaced.
func (s *Service) Refresh(ctx context.Context, raw string) (Tokens, error) {
	rt, err := s.store.RefreshTokenByHash(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Tokens{}, ErrExpiredRefresh
		}
		return Tokens{}, err
	}
	if !rt.Usable(s.now()) {
		return Tokens{}, ErrExpiredRefresh
	}
	u, err := s.store.UserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Tokens{}, ErrExpiredRefresh
		}
		return Tokens{}, err
	}
	// The revoke is conditional, so a token raced by a concurrent refresh
	// loses here instead of minting a second pair.
	if err := s.store.RevokeRefreshToken(ctx, rt.ID); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Tokens{}, ErrExpiredRefresh
		}
		return Tokens{}, err
	}
	return s.issue(ctx, u)
}

// Revoke invalidates a refresh token, typically on logout.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	rt, err := s.store.RefreshTokenByHash(ctx, hashToken(raw))
	if err != nil {
		return err
	}
	if rt.Revoked {
		return nil
	}
	err = s.store.RevokeRefreshToken(ctx, rt.ID)
	if errors.Is(err, ErrTokenNotFound) {
		return nil
	}
	return err
}

// ResetPassword replaces the password of username and revokes every refresh
// token the user holds.
func (s *Service) ResetPassword(ctx context.Context, username, password string) (*models.User, error) {
	if len(password) < MinPasswordLength {
		return nil, &InputError{Field: "password", Msg: fmt.Sprintf("password too short (min %d)", MinPasswordLength)}
	}
	u, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hashed); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	if err := s.store.RevokeUserRefreshTokens(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	u.HashedPassword = hashed
	s.log.InfoContext(ctx, "password reset", logging.FieldUserID, u.ID)
	return u, nil
}

// AccessToken signs an access token for u without a refresh token.
func (s *Service) AccessToken(u *models.User) (string, error) {
	return s.signAccessToken(u)
}

func (s *Service) issue(ctx context.Context, u *models.User) (Tokens, error) {
	access, err := s.signAccessToken(u)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}
	raw, hash, err := newRefreshToken()
	if err != nil {
		return Tokens{}, fmt.Errorf("generate refresh token: %w", err)
	}
	now := s.now()
	rt := &models.RefreshToken{UserID: u.ID, TokenHash: hash, ExpiresAt: now.Add(s.refreshTTL)}
	if err := s.store.CreateRefreshToken(ctx, rt); err != nil {
		return Tokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return Tokens{AccessToken: access, RefreshToken: raw, ExpiresAt: now.Add(s.accessTTL)}, nil
}
