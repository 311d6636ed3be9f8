package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/config"
	"github.com/fast-pay/fastpay/internal/money"
)

func testConfig() config.Config {
	return config.Config{
		AppName:         "FastPay",
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func newStore(t *testing.T) (*account.Store, account.Account) {
	t.Helper()
	store := account.NewStore(account.NewMemoryRepository(), account.NewIdentifierGenerator("fastpay"), 0)
	acc, err := store.Create(context.Background(), account.Profile{DisplayName: "Ada", Contact: "ada@example.com"}, money.FromMajor(10))
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return store, acc
}

func TestLoginIssuesVerifiableAccessToken(t *testing.T) {
	store, acc := newStore(t)
	svc := NewService(testConfig(), store)

	pair, err := svc.Login(acc)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in %d", pair.ExpiresIn)
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != acc.ID || claims.Contact != acc.Contact {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	store, acc := newStore(t)
	svc := NewService(testConfig(), store)

	pair, err := svc.Login(acc)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	access, exp, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if exp <= 0 {
		t.Fatalf("expected positive expiry")
	}
	if _, err := svc.VerifyAccess(access); err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}

	if _, _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestRefreshRejectsUnknownAccount(t *testing.T) {
	store, _ := newStore(t)
	svc := NewService(testConfig(), store)

	pair, err := svc.Login(account.Account{ID: "deadbeef@fastpay", Contact: "ghost@example.com"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyAccessRejectsExpiredAndForeignTokens(t *testing.T) {
	store, acc := newStore(t)
	svc := NewService(testConfig(), store)

	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	pair, err := svc.Login(acc)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.now = time.Now
	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	other := testConfig()
	other.JWTSecret = "someone-else"
	foreign, err := NewService(other, store).Login(acc)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.VerifyAccess(foreign.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to fail, got %v", err)
	}
}
