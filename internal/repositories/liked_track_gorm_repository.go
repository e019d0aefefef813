package repositories

import (
	"context"
	"errors"
	"fmt"

	"vofo/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMLikedTrackRepository is a GORM implementation of LikedTrackRepository.
type GORMLikedTrackRepository struct {
	db *gorm.DB
}

// NewGORMLikedTrackRepository creates a new instance of GORMLikedTrackRepository.
func NewGORMLikedTrackRepository(db *gorm.DB) *GORMLikedTrackRepository {
	return &GORMLikedTrackRepository{
		db: db,
	}
}

// Toggle runs compare-and-delete followed by insert inside one transaction.
// The composite unique index backs the at-most-one-row invariant when
// another process races the insert. The owning account row is share-locked
// for the duration so that an account deletion cannot interleave.
func (r *GORMLikedTrackRepository) Toggle(ctx context.Context, like *models.LikedTrack) (models.LikeStatus, error) {
	var status models.LikeStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.Account
		if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthShare}).
			Select("id").
			First(&owner, "id = ?", like.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock account %s: %w", like.AccountID, err)
		}

		res := tx.Where("account_id = ? AND track_id = ?", like.AccountID, like.TrackID).Delete(&models.LikedTrack{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete liked track: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			status = models.Unliked
			return nil
		}

		if like.ID == "" {
			like.ID = uuid.New().String()
		}
		if err := tx.Create(like).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrConflict
			}
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to create liked track: %w", err)
		}
		status = models.Liked
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// ListByAccount returns the account's likes in insertion order.
func (r *GORMLikedTrackRepository) ListByAccount(ctx context.Context, accountID string) ([]models.LikedTrack, error) {
	likes := []models.LikedTrack{}
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at asc").
		Order("id asc").
		Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to list liked tracks for account %s: %w", accountID, err)
	}
	return likes, nil
}
