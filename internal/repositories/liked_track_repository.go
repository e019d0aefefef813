package repositories

import (
	"context"

	"vofo/internal/models"
)

// LikedTrackRepository defines the interface for liked track data access.
type LikedTrackRepository interface {
	// Toggle deletes the (AccountID, TrackID) row if present and inserts like
	// otherwise, as one atomic unit. ErrConflict means a concurrent writer
	// inserted the same key first. ErrNotFound means the account is gone.
	Toggle(ctx context.Context, like *models.LikedTrack) (models.LikeStatus, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.LikedTrack, error)
}
