package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"vofo/internal/models"
	"vofo/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration and credential checks.
type AuthService struct {
	accounts repositories.AccountRepository
	cost     int
	events   EventPublisher

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService. A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost. events may be nil.
func NewAuthService(accounts repositories.AccountRepository, bcryptCost int, events EventPublisher) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		accounts: accounts,
		cost:     bcryptCost,
		events:   events,
	}
}

// Register hashes the password and stores a new account. Uniqueness is left
// to the store's unique index.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.Account, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, ErrInvalidInput
	}
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{Username: username, PasswordHash: string(hash)}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	publishEvent(s.events, Event{Type: EventAccountRegistered, AccountID: account.ID, Username: account.Username})
	return account, nil
}

// Authenticate returns the account for a valid username/password pair. An
// unknown username and a wrong password yield the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	if len(password) > MaxPasswordBytes {
		s.burnCompare(password)
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.burnCompare(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// DeleteAccount re-checks the password, then removes the account. The store
// drops the account's likes in the same unit.
func (s *AuthService) DeleteAccount(ctx context.Context, accountID, password string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("failed to load account: %w", err)
	}
	if len(password) > MaxPasswordBytes {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	publishEvent(s.events, Event{Type: EventAccountDeleted, AccountID: account.ID, Username: account.Username})
	return nil
}

// burnCompare spends the same bcrypt work as a real comparison.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vofo-dummy-password"), s.cost)
	})
	if len(password) > MaxPasswordBytes {
		password = password[:MaxPasswordBytes]
	}
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}
