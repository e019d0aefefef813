package models

import "time"

// Track is the display snapshot of a track as returned by search and library endpoints.
type Track struct {
	ID        string `json:"id" validate:"required,max=500"`
	Title     string `json:"title" validate:"max=200"`
	Artist    string `json:"artist" validate:"max=100"`
	Thumbnail string `json:"thumbnail" validate:"max=500"`
}

// LikedTrack records that an account liked a track. Title, Artist, and
// Thumbnail are frozen at like-time.
type LikedTrack struct {
	ID        string    `json:"-" gorm:"primaryKey;type:varchar(36)"`
	AccountID string    `json:"-" gorm:"uniqueIndex:idx_liked_account_track;type:varchar(36);not null"`
	TrackID   string    `json:"id" gorm:"uniqueIndex:idx_liked_account_track;type:varchar(500);not null"`
	Title     string    `json:"title" gorm:"type:varchar(200)"`
	Artist    string    `json:"artist" gorm:"type:varchar(100)"`
	Thumbnail string    `json:"thumbnail" gorm:"type:varchar(500)"`
	CreatedAt time.Time `json:"-"`

	Account *Account `json:"-" gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// NewLikedTrack builds the row persisted when accountID likes track.
func NewLikedTrack(accountID string, track Track) *LikedTrack {
	return &LikedTrack{
		AccountID: accountID,
		TrackID:   track.ID,
		Title:     track.Title,
		Artist:    track.Artist,
		Thumbnail: track.Thumbnail,
	}
}

// Track returns the snapshot stored on the row.
func (l LikedTrack) Track() Track {
	return Track{
		ID:        l.TrackID,
		Title:     l.Title,
		Artist:    l.Artist,
		Thumbnail: l.Thumbnail,
	}
}

// LikeStatus is the outcome of a toggle.
type LikeStatus string

const (
	Liked   LikeStatus = "liked"
	Unliked LikeStatus = "unliked"
)

// Stream is a playable, time-limited media URL. It must never be cached.
type Stream struct {
	URL string `json:"stream_url"`
	Ext string `json:"ext,omitempty"`
}
