package users

import (
	"strings"
	"time"
)

// Account is a sign-in identity. Its ID is also the ID of the owned profile.
type Account struct {
	ID           string    `gorm:"column:id;primaryKey;size:64;not null"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex:idx_user_accounts_email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	LastSeenAt   time.Time `gorm:"column:last_seen_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

// TableName exposes the table backing accounts.
func (Account) TableName() string {
	return "user_accounts"
}

// normalizeEmail trims and lowercases an address for storage and lookups.
func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
