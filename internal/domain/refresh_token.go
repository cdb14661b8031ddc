package domain

import "time"

// RefreshToken stores the single live refresh token of a user.
//
// Security notes:
// - We never store the raw token in DB, only its SHA-256 hash (TokenHash).
// - The unique index on UserID is the storage-level guarantee that at most
//   one refresh token is live per user; Save replaces the previous row.
type RefreshToken struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"uniqueIndex;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	TokenHash string `json:"-" gorm:"size:64;not null"`

	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
