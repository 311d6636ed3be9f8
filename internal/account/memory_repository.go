package account

import (
	"context"
	"sync"

	"github.com/fast-pay/fastpay/internal/money"
)

type memoryRepository struct {
	mu        sync.RWMutex
	accounts  map[string]Account
	byContact map[string]string
}

// NewMemoryRepository constructs a concurrency-safe in-memory repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		accounts:  make(map[string]Account),
		byContact: make(map[string]string),
	}
}

func (r *memoryRepository) Insert(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[acc.ID]; exists {
		return ErrIdentifierTaken
	}
	if _, exists := r.byContact[acc.Contact]; exists {
		return ErrDuplicateProfile
	}
	r.accounts[acc.ID] = acc
	r.byContact[acc.Contact] = acc.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (r *memoryRepository) FindByContact(_ context.Context, contact string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byContact[contact]
	if !ok {
		return Account{}, ErrNotFound
	}
	return r.accounts[id], nil
}

func (r *memoryRepository) ApplyDelta(_ context.Context, id string, delta money.Amount, expectedVersion int64) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if acc.Version != expectedVersion {
		return Account{}, ErrConflict
	}
	if acc.Balance+delta < 0 {
		return Account{}, ErrNegativeBalance
	}
	acc.Balance += delta
	acc.Version++
	r.accounts[id] = acc
	return acc, nil
}

func (r *memoryRepository) SetTwoFactor(_ context.Context, id, secretRef string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	acc.TwoFactorEnabled = true
	acc.TwoFactorSecretRef = secretRef
	r.accounts[id] = acc
	return acc, nil
}

func (r *memoryRepository) Totals(_ context.Context) (Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var t Totals
	for _, acc := range r.accounts {
		t.Accounts++
		t.Balances += acc.Balance
		t.Seeded += acc.SeedBalance
	}
	return t, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if acc.Version != expectedVersion {
		return ErrConflict
	}
	delete(r.accounts, id)
	delete(r.byContact, acc.Contact)
	return nil
}
