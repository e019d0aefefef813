package models

import "time"

// Account represents a registered listener.
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"uniqueIndex;type:varchar(80);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(120);not null"` // bcrypt digest, never the raw secret
	CreatedAt    time.Time `json:"created_at"`
}
