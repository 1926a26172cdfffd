package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/account"
	"expensetracker/pkg/store/memory"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) *account.Service {
	t.Helper()
	return account.NewService(memory.New(), account.Config{
		Secret:     []byte("test-secret-test-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  alice ", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Username != "alice" || u.ID == 0 {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := svc.Register(ctx, "alice", "another1"); !errors.Is(err, account.ErrUserExists) {
		t.Fatalf("expected ErrUserExists got %v", err)
	}

	user, tokens, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != u.ID || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("unexpected login result %+v %+v", user, tokens)
	}
	claims, err := svc.ParseAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != u.ID || claims.Username != "alice" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, _, err := svc.Login(ctx, "alice", "wrong-pass"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials got %v", err)
	}
	if _, _, err := svc.Login(ctx, "bob", "secret1"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("unknown user must look like bad credentials, got %v", err)
	}
}

func TestRegisterInputRules(t *testing.T) {
	svc := newService(t)
	var ierr *account.InputError
	if _, err := svc.Register(context.Background(), "   ", "secret1"); !errors.As(err, &ierr) || ierr.Field != "username" {
		t.Fatalf("expected username error got %v", err)
	}
	if _, err := svc.Register(context.Background(), "carol", "123"); !errors.As(err, &ierr) || ierr.Field != "password" {
		t.Fatalf("expected password error got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "dave", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, first, err := svc.Login(ctx, "dave", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, account.ErrExpiredRefresh) {
		t.Fatalf("reusing a rotated token: expected ErrExpiredRefresh got %v", err)
	}

	if err := svc.Revoke(ctx, second.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); !errors.Is(err, account.ErrExpiredRefresh) {
		t.Fatalf("revoked token: expected ErrExpiredRefresh got %v", err)
	}
	if _, err := svc.Refresh(ctx, "not-a-token"); !errors.Is(err, account.ErrExpiredRefresh) {
		t.Fatalf("unknown token: expected ErrExpiredRefresh got %v", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "erin", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, tokens, err := svc.Login(ctx, "erin", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.SetClock(func() time.Time { return time.Now().Add(48 * time.Hour) })
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, account.ErrExpiredRefresh) {
		t.Fatalf("expected ErrExpiredRefresh got %v", err)
	}
	if _, err := svc.ParseAccessToken(tokens.AccessToken); !errors.Is(err, account.ErrInvalidToken) {
		t.Fatalf("expected expired access token to be rejected, got %v", err)
	}
}

func TestParseAccessTokenRejectsForeignTokens(t *testing.T) {
	svc := newService(t)
	claims := account.Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	other, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	if _, err := svc.ParseAccessToken(other); !errors.Is(err, account.ErrInvalidToken) {
		t.Fatalf("wrong key: expected ErrInvalidToken got %v", err)
	}

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret-test-secret"))
	if _, err := svc.ParseAccessToken(hs512); !errors.Is(err, account.ErrInvalidToken) {
		t.Fatalf("HS512: expected ErrInvalidToken got %v", err)
	}

	claims.UserID = 0
	noUID, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-test-secret"))
	if _, err := svc.ParseAccessToken(noUID); !errors.Is(err, account.ErrInvalidToken) {
		t.Fatalf("missing uid: expected ErrInvalidToken got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "frank", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, tokens, err := svc.Login(ctx, "frank", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var ierr *account.InputError
	if _, err := svc.ResetPassword(ctx, "frank", "123"); !errors.As(err, &ierr) || ierr.Field != "password" {
		t.Fatalf("expected password error got %v", err)
	}
	if _, err := svc.ResetPassword(ctx, "nobody", "newsecret"); !errors.Is(err, account.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound got %v", err)
	}
	if _, err := svc.ResetPassword(ctx, "frank", "newsecret"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, _, err := svc.Login(ctx, "frank", "secret1"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, _, err := svc.Login(ctx, "frank", "newsecret"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, account.ErrExpiredRefresh) {
		t.Fatalf("refresh token survived reset: %v", err)
	}
}

// staleTokens serves refresh tokens as if read before a concurrent refresh
// revoked them.
type staleTokens struct {
	*memory.Store
}

func (s staleTokens) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	rt, err := s.Store.RefreshTokenByHash(ctx, hash)
	if rt != nil {
		rt.Revoked = false
	}
	return rt, err
}

func TestRefreshLosesRaceOnRevokedToken(t *testing.T) {
	svc := account.NewService(staleTokens{memory.New()}, account.Config{
		Secret:     []byte("test-secret-test-secret"),
		BcryptCost: bcrypt.MinCost,
	}, nil)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "gina", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, tokens, err := svc.Login(ctx, "gina", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, account.ErrExpiredRefresh) {
		t.Fatalf("second refresh of the same token: expected ErrExpiredRefresh got %v", err)
	}
	if err := svc.Revoke(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("revoking an already revoked token: %v", err)
	}
}
