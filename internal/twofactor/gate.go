package twofactor

import (
	"context"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Gate answers whether a one-time token is currently valid for an account.
type Gate interface {
	Verify(ctx context.Context, accountID, token string) bool
}

// SecretSource resolves the shared TOTP secret enrolled for an account.
type SecretSource interface {
	TwoFactorSecret(ctx context.Context, accountID string) (string, error)
}

// TOTPGate validates six digit, 30 second TOTP codes and tolerates one step of clock skew.
type TOTPGate struct {
	secrets SecretSource
	now     func() time.Time
}

// NewTOTPGate builds a gate backed by the given secret source.
func NewTOTPGate(secrets SecretSource) *TOTPGate {
	return &TOTPGate{secrets: secrets, now: time.Now}
}

// Verify reports false for blank tokens, unknown accounts and lookup failures.
func (g *TOTPGate) Verify(ctx context.Context, accountID, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || g.secrets == nil {
		return false
	}
	secret, err := g.secrets.TwoFactorSecret(ctx, accountID)
	if err != nil || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(token, secret, g.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
