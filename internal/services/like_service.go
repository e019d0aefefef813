package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vofo/internal/models"
	"vofo/internal/repositories"
)

// LikeService owns the liked-songs list of each account.
type LikeService struct {
	likes  repositories.LikedTrackRepository
	locks  *keyedMutex
	events EventPublisher
}

// NewLikeService creates a new LikeService. events may be nil.
func NewLikeService(likes repositories.LikedTrackRepository, events EventPublisher) *LikeService {
	return &LikeService{
		likes:  likes,
		locks:  newKeyedMutex(),
		events: events,
	}
}

// Toggle removes the like if present and records track otherwise.
func (s *LikeService) Toggle(ctx context.Context, accountID string, track models.Track) (models.LikeStatus, error) {
	if accountID == "" || strings.TrimSpace(track.ID) == "" {
		return "", ErrInvalidInput
	}

	unlock := s.locks.Lock(accountID + "\x00" + track.ID)
	defer unlock()

	status, err := s.likes.Toggle(ctx, models.NewLikedTrack(accountID, track))
	if errors.Is(err, repositories.ErrConflict) {
		// another process inserted the same key between our delete and insert
		status, err = s.likes.Toggle(ctx, models.NewLikedTrack(accountID, track))
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to toggle like: %w", err)
	}

	eventType := EventTrackLiked
	if status == models.Unliked {
		eventType = EventTrackUnliked
	}
	publishEvent(s.events, Event{Type: eventType, AccountID: accountID, TrackID: track.ID})
	return status, nil
}

// List returns the account's liked tracks, oldest first.
func (s *LikeService) List(ctx context.Context, accountID string) ([]models.Track, error) {
	rows, err := s.likes.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	tracks := make([]models.Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, row.Track())
	}
	return tracks, nil
}
