package models

import (
	"time"
)

// RefreshToken is a persisted refresh JWT. Logout and rotation revoke it.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;not null;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// IsActive reports whether the token may still be exchanged.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
