package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           int64    `json:"id" gorm:"primaryKey"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string   `json:"-"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role" gorm:"default:user"`
	AvatarURL    string   `json:"avatar_url,omitempty"`

	// Set for accounts created through an external identity provider;
	// empty for password accounts.
	Provider   string `json:"-" gorm:"index:idx_users_provider"`
	ProviderID string `json:"-" gorm:"index:idx_users_provider"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
