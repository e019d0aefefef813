package repositories

import (
	"context"
	"sync"
	"time"

	"vofo/internal/models"

	"github.com/google/uuid"
)

// MockAccountRepository is an in-memory implementation of AccountRepository.
// A linked MockLikedTrackRepository is swept on Delete.
type MockAccountRepository struct {
	accounts   map[string]models.Account
	byUsername map[string]string
	likes      *MockLikedTrackRepository
	mu         sync.RWMutex
}

// NewMockAccountRepository creates a new instance of MockAccountRepository.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts:   make(map[string]models.Account),
		byUsername: make(map[string]string),
	}
}

// Create adds a new account. The username check and insert happen under one lock.
func (r *MockAccountRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[account.Username]; taken {
		return ErrConflict
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	r.accounts[account.ID] = *account
	r.byUsername[account.Username] = account.ID
	return nil
}

// GetByUsername returns an account by its username.
func (r *MockAccountRepository) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	account := r.accounts[id]
	return &account, nil
}

// GetByID returns an account by its ID.
func (r *MockAccountRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

// Delete removes an account and, when linked, its likes. Toggle holds the
// account read lock, so the two never interleave.
func (r *MockAccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byUsername, account.Username)
	delete(r.accounts, id)
	if r.likes != nil {
		r.likes.deleteByAccount(id)
	}
	return nil
}

func (r *MockAccountRepository) exists(id string) bool {
	_, ok := r.accounts[id]
	return ok
}
