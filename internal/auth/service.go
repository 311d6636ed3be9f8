package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/config"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// ErrInvalidToken covers malformed, expired, mis-signed and wrong-kind tokens.
var ErrInvalidToken = errors.New("invalid token")

// AccountLookup confirms the subject of a refresh token still exists.
type AccountLookup interface {
	Get(ctx context.Context, id string) (account.Account, error)
}

// Claims is the JWT payload issued for an account session.
type Claims struct {
	Contact string `json:"contact,omitempty"`
	Kind    string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service issues and verifies HS256 session tokens.
type Service struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	accounts      AccountLookup
	now           func() time.Time
}

// NewService builds a token service from configuration.
func NewService(cfg config.Config, accounts AccountLookup) *Service {
	return &Service{
		issuer:        cfg.AppName,
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		accounts:      accounts,
		now:           time.Now,
	}
}

// Login issues an access and refresh token for an authenticated account.
func (s *Service) Login(acc account.Account) (TokenPair, error) {
	access, err := s.sign(acc.ID, acc.Contact, kindAccess, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(acc.ID, acc.Contact, kindRefresh, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.accessTTL.Seconds())}, nil
}

// Refresh verifies the refresh token and returns a new access token if its account still exists.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.parse(refreshToken, kindRefresh, s.refreshSecret)
	if err != nil {
		return "", 0, err
	}
	if s.accounts != nil {
		if _, err := s.accounts.Get(ctx, claims.Subject); err != nil {
			return "", 0, fmt.Errorf("%w: account %s", ErrInvalidToken, claims.Subject)
		}
	}
	signed, err := s.sign(claims.Subject, claims.Contact, kindAccess, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.accessTTL.Seconds()), nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(token string) (Claims, error) {
	return s.parse(token, kindAccess, s.accessSecret)
}

func (s *Service) sign(subject, contact, kind string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Contact: contact,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (s *Service) parse(token, kind string, secret []byte) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
