package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	byAccount map[string]Credential
	byContact map[string]string
}

// NewMemoryRepository builds an in-memory credential store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byAccount: make(map[string]Credential),
		byContact: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, cred Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byAccount[cred.AccountID]; exists {
		return ErrCredentialExists
	}
	if _, exists := r.byContact[cred.Contact]; exists {
		return ErrCredentialExists
	}
	r.byAccount[cred.AccountID] = cred
	r.byContact[cred.Contact] = cred.AccountID
	return nil
}

func (r *memoryRepository) FindByContact(_ context.Context, contact string) (Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byContact[contact]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return r.byAccount[id], nil
}

func (r *memoryRepository) FindByAccountID(_ context.Context, accountID string) (Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cred, ok := r.byAccount[accountID]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cred, nil
}

func (r *memoryRepository) SetTwoFactorSecret(_ context.Context, accountID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.byAccount[accountID]
	if !ok {
		return ErrCredentialNotFound
	}
	cred.TwoFactorSecret = secret
	r.byAccount[accountID] = cred
	return nil
}

func (r *memoryRepository) TwoFactorSecret(ctx context.Context, accountID string) (string, error) {
	cred, err := r.FindByAccountID(ctx, accountID)
	if err != nil {
		return "", err
	}
	return cred.TwoFactorSecret, nil
}
