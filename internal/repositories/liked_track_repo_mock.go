package repositories

import (
	"context"
	"sync"
	"time"

	"vofo/internal/models"

	"github.com/google/uuid"
)

// MockLikedTrackRepository is an in-memory implementation of LikedTrackRepository.
// Likes are kept per account in insertion order.
type MockLikedTrackRepository struct {
	likes    map[string][]models.LikedTrack
	accounts *MockAccountRepository
	mu       sync.RWMutex
}

// NewMockLikedTrackRepository creates a new instance of MockLikedTrackRepository.
// When accounts is non-nil the two stores are linked: Toggle rejects unknown
// accounts and accounts.Delete removes the account's likes.
func NewMockLikedTrackRepository(accounts *MockAccountRepository) *MockLikedTrackRepository {
	repo := &MockLikedTrackRepository{
		likes:    make(map[string][]models.LikedTrack),
		accounts: accounts,
	}
	if accounts != nil {
		accounts.mu.Lock()
		accounts.likes = repo
		accounts.mu.Unlock()
	}
	return repo
}

// Toggle removes the like if present, otherwise appends it.
func (r *MockLikedTrackRepository) Toggle(_ context.Context, like *models.LikedTrack) (models.LikeStatus, error) {
	// lock order: accounts, then likes
	if r.accounts != nil {
		r.accounts.mu.RLock()
		defer r.accounts.mu.RUnlock()
		if !r.accounts.exists(like.AccountID) {
			return "", ErrNotFound
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.likes[like.AccountID]
	for i, existing := range owned {
		if existing.TrackID == like.TrackID {
			r.likes[like.AccountID] = append(owned[:i:i], owned[i+1:]...)
			return models.Unliked, nil
		}
	}

	if like.ID == "" {
		like.ID = uuid.New().String()
	}
	if like.CreatedAt.IsZero() {
		like.CreatedAt = time.Now()
	}
	r.likes[like.AccountID] = append(owned, *like)
	return models.Liked, nil
}

// ListByAccount returns a copy of the account's likes.
func (r *MockLikedTrackRepository) ListByAccount(_ context.Context, accountID string) ([]models.LikedTrack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := r.likes[accountID]
	likes := make([]models.LikedTrack, len(owned))
	copy(likes, owned)
	return likes, nil
}

func (r *MockLikedTrackRepository) deleteByAccount(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.likes, accountID)
}
