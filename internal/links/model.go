package links

import (
	"strings"
	"time"
)

// Direction selects which neighbour a link swaps with during a move.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts "up" or "down" in any case.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case DirectionUp:
		return DirectionUp, true
	case DirectionDown:
		return DirectionDown, true
	default:
		return "", false
	}
}

// Link is one outbound URL on a profile. Position is the zero based display rank.
type Link struct {
	ID        string    `gorm:"column:id;primaryKey;size:64;not null"`
	UserID    string    `gorm:"column:user_id;size:64;not null;index:idx_links_user_position,priority:1"`
	Title     string    `gorm:"column:title;type:text;not null"`
	URL       string    `gorm:"column:url;type:text;not null"`
	Platform  Platform  `gorm:"column:platform;size:32;not null"`
	Position  int       `gorm:"column:position;not null;index:idx_links_user_position,priority:2"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Link) TableName() string {
	return "links"
}

// Patch holds the optional fields of a link update. Nil fields are left untouched.
type Patch struct {
	Title    *string
	URL      *string
	IsActive *bool
	Platform *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.URL == nil && p.IsActive == nil && p.Platform == nil
}
