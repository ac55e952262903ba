package model

import "time"

// FamilyMember is a node in the family graph. Parents and Children are
// hydrated from the parent_child join table; Spouse is a symmetric pointer.
type FamilyMember struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	WeddingDate  *time.Time `json:"wedding_date,omitempty"`
	DeathDate    *time.Time `json:"death_date,omitempty"`
	SpouseID     *string    `json:"spouse_id,omitempty"`
	Relationship string     `json:"relationship"`
	Biography    string     `json:"biography"`
	Occupation   string     `json:"occupation"`
	Location     string     `json:"location"`
	ProfileImage string     `json:"profile_image"`
	UserID       *string    `json:"user_id,omitempty"`
	Parents      []string   `json:"parents"`
	Children     []string   `json:"children"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ParentChildEdge is one directed parent->child row.
type ParentChildEdge struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
}
