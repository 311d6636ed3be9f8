package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fast-pay/fastpay/internal/money"
)

const defaultIdentifierAttempts = 5

// Generator yields candidate account identifiers.
type Generator interface {
	Generate() (string, error)
}

// Store is the account store used by the rest of the system: it allocates identifiers,
// normalises profiles and exposes the conditional balance update.
type Store struct {
	repo     Repository
	ids      Generator
	attempts int
	now      func() time.Time
}

// NewStore wires a repository and identifier generator. attempts <= 0 selects the default of 5.
func NewStore(repo Repository, ids Generator, attempts int) *Store {
	if attempts <= 0 {
		attempts = defaultIdentifierAttempts
	}
	return &Store{repo: repo, ids: ids, attempts: attempts, now: time.Now}
}

// Create registers a new account seeded with initialBalance.
func (s *Store) Create(ctx context.Context, profile Profile, initialBalance money.Amount) (Account, error) {
	profile, err := normalizeProfile(profile)
	if err != nil {
		return Account{}, err
	}
	if initialBalance < 0 {
		return Account{}, ErrInvalidBalance
	}

	if _, err := s.repo.FindByContact(ctx, profile.Contact); err == nil {
		return Account{}, ErrDuplicateProfile
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}

	for attempt := 0; attempt < s.attempts; attempt++ {
		id, err := s.ids.Generate()
		if err != nil {
			return Account{}, err
		}

		acc := Account{
			ID:          id,
			DisplayName: profile.DisplayName,
			Contact:     profile.Contact,
			Balance:     initialBalance,
			SeedBalance: initialBalance,
			CreatedAt:   s.now().UTC(),
		}

		err = s.repo.Insert(ctx, acc)
		switch {
		case err == nil:
			return acc, nil
		case errors.Is(err, ErrIdentifierTaken):
			continue
		default:
			return Account{}, err
		}
	}
	return Account{}, ErrIdentifierExhausted
}

// Get returns the current snapshot of an account.
func (s *Store) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// FindByContact resolves an account from its contact address.
func (s *Store) FindByContact(ctx context.Context, contact string) (Account, error) {
	return s.repo.FindByContact(ctx, normalizeContact(contact))
}

// ApplyDelta sets balance += delta and version += 1 only if the stored version equals
// expectedVersion. It returns ErrConflict otherwise, leaving the account untouched.
func (s *Store) ApplyDelta(ctx context.Context, id string, delta money.Amount, expectedVersion int64) (Account, error) {
	return s.repo.ApplyDelta(ctx, id, delta, expectedVersion)
}

// SetTwoFactor marks two-factor authentication as enabled for the account.
func (s *Store) SetTwoFactor(ctx context.Context, id, secretRef string) (Account, error) {
	return s.repo.SetTwoFactor(ctx, id, secretRef)
}

// Remove deletes an account that has not changed since expectedVersion. It undoes a Create
// whose follow-up writes failed; an account that has moved money is never removed.
func (s *Store) Remove(ctx context.Context, id string, expectedVersion int64) error {
	return s.repo.Delete(ctx, id, expectedVersion)
}

// Totals reports the summed balances and seed balances.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	return s.repo.Totals(ctx)
}

func normalizeProfile(p Profile) (Profile, error) {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		return Profile{}, fmt.Errorf("%w: display name is required", ErrInvalidProfile)
	}
	p.Contact = normalizeContact(p.Contact)
	if p.Contact == "" {
		return Profile{}, fmt.Errorf("%w: contact address is required", ErrInvalidProfile)
	}
	if _, err := mail.ParseAddress(p.Contact); err != nil {
		return Profile{}, fmt.Errorf("%w: contact address %q is not valid", ErrInvalidProfile, p.Contact)
	}
	return p, nil
}

func normalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}
