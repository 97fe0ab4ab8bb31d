package profiles

import (
	"regexp"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/apperrors"
)

const minUsernameLength = 3

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Profile is the public identity page of one account. ID equals the account id.
type Profile struct {
	ID          string    `gorm:"column:id;primaryKey;size:64;not null"`
	Username    string    `gorm:"column:username;type:text;not null;uniqueIndex:idx_profiles_username"`
	DisplayName string    `gorm:"column:display_name;type:text;not null"`
	Bio         string    `gorm:"column:bio;type:text;not null"`
	AvatarURL   string    `gorm:"column:avatar_url;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Profile) TableName() string {
	return "profiles"
}

// ValidateUsername checks the sign-up username rules and returns the stored form.
func ValidateUsername(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.Validation("invalid_username", "username cannot be empty")
	}
	if len(trimmed) < minUsernameLength {
		return "", apperrors.Validation("invalid_username", "username must be at least 3 characters")
	}
	if !usernamePattern.MatchString(trimmed) {
		return "", apperrors.Validation("invalid_username", "username can only contain letters, numbers, underscores, and hyphens")
	}
	return strings.ToLower(trimmed), nil
}

// Update carries the editable text fields of a profile.
type Update struct {
	Username    string
	DisplayName string
	Bio         string
}

// AvatarUpload describes an image submitted by the owner.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Size        int64
}
