package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/money"
	"github.com/fast-pay/fastpay/internal/twofactor"
)

const minPasswordLength = 8

// Service manages signup, password login and two-factor enrollment.
type Service struct {
	repo          Repository
	accounts      *account.Store
	gate          twofactor.Gate
	enroller      *twofactor.Enroller
	signupBalance money.Amount
	hashCost      int
	now           func() time.Time
}

// NewService creates a new identity service. New accounts are seeded with signupBalance.
func NewService(repo Repository, accounts *account.Store, gate twofactor.Gate, enroller *twofactor.Enroller, signupBalance money.Amount) *Service {
	return &Service{
		repo:          repo,
		accounts:      accounts,
		gate:          gate,
		enroller:      enroller,
		signupBalance: signupBalance,
		hashCost:      bcrypt.DefaultCost,
		now:           time.Now,
	}
}

// Signup opens an account and stores a bcrypt hash of the password.
func (s *Service) Signup(ctx context.Context, in SignupInput) (account.Account, error) {
	if len(in.Password) < minPasswordLength {
		return account.Account{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return account.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.accounts.Create(ctx, account.Profile{DisplayName: in.DisplayName, Contact: in.Contact}, s.signupBalance)
	if err != nil {
		return account.Account{}, err
	}

	cred := Credential{
		AccountID:    acc.ID,
		Contact:      acc.Contact,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, cred); err != nil {
		err = fmt.Errorf("store credential for %s: %w", acc.ID, err)
		// Release the contact so the signup can be retried.
		if rerr := s.accounts.Remove(context.WithoutCancel(ctx), acc.ID, acc.Version); rerr != nil {
			return account.Account{}, errors.Join(err, fmt.Errorf("remove orphaned account %s: %w", acc.ID, rerr))
		}
		return account.Account{}, err
	}
	return acc, nil
}

// Authenticate checks the password and, when the account has 2FA enabled, the TOTP token.
// It returns the account with its current balance.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (account.Account, error) {
	contact := strings.ToLower(strings.TrimSpace(in.Contact))
	cred, err := s.repo.FindByContact(ctx, contact)
	if errors.Is(err, ErrCredentialNotFound) {
		return account.Account{}, ErrAuthenticationFailed
	}
	if err != nil {
		return account.Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(in.Password)); err != nil {
		return account.Account{}, ErrAuthenticationFailed
	}

	acc, err := s.accounts.Get(ctx, cred.AccountID)
	if err != nil {
		return account.Account{}, err
	}

	if acc.TwoFactorEnabled {
		if s.gate == nil || !s.gate.Verify(ctx, acc.ID, in.TwoFactorToken) {
			return account.Account{}, ErrTwoFactorInvalid
		}
	}
	return acc, nil
}

// EnableTwoFactor generates a fresh TOTP secret for the account, replacing any previous one.
func (s *Service) EnableTwoFactor(ctx context.Context, accountID string) (twofactor.Enrollment, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return twofactor.Enrollment{}, err
	}

	enrollment, err := s.enroller.Enroll(acc.Contact)
	if err != nil {
		return twofactor.Enrollment{}, err
	}

	if err := s.repo.SetTwoFactorSecret(ctx, acc.ID, enrollment.Secret); err != nil {
		return twofactor.Enrollment{}, fmt.Errorf("store two-factor secret: %w", err)
	}
	if _, err := s.accounts.SetTwoFactor(ctx, acc.ID, secretRef(acc.ID)); err != nil {
		return twofactor.Enrollment{}, fmt.Errorf("flag two-factor: %w", err)
	}
	return enrollment, nil
}

func secretRef(accountID string) string {
	return "credentials/" + accountID
}
