package analytics

import "time"

// ProfileView is one recorded visit of a public page.
type ProfileView struct {
	ID             string    `gorm:"column:id;primaryKey;size:64;not null"`
	ProfileID      string    `gorm:"column:profile_id;size:64;not null;index:idx_profile_views_profile_session,priority:1"`
	VisitorSession string    `gorm:"column:visitor_session;size:64;not null;index:idx_profile_views_profile_session,priority:2"`
	UserAgent      string    `gorm:"column:user_agent;type:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ProfileView) TableName() string {
	return "profile_views"
}

// LinkClick is one recorded follow of a public link.
type LinkClick struct {
	ID             string    `gorm:"column:id;primaryKey;size:64;not null"`
	ProfileID      string    `gorm:"column:profile_id;size:64;not null;index:idx_link_clicks_profile"`
	LinkID         string    `gorm:"column:link_id;size:64;not null;index:idx_link_clicks_link"`
	VisitorSession string    `gorm:"column:visitor_session;size:64;not null"`
	UserAgent      string    `gorm:"column:user_agent;type:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (LinkClick) TableName() string {
	return "link_clicks"
}

// ViewEvent describes a public page load. ViewerID is the signed-in identity
// of the visitor, empty for anonymous visitors.
type ViewEvent struct {
	ProfileID      string
	ViewerID       string
	VisitorSession string
	UserAgent      string
}

// ClickEvent describes a followed public link.
type ClickEvent struct {
	ProfileID      string
	LinkID         string
	ViewerID       string
	VisitorSession string
	UserAgent      string
}

// Summary aggregates the counters shown on the owner's dashboard.
type Summary struct {
	TotalViews   int64            `json:"total_views"`
	TotalClicks  int64            `json:"total_clicks"`
	ClicksByLink map[string]int64 `json:"clicks_by_link"`
}
