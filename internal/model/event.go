package model

import "time"

// Event lifecycle states. CompletedAt is non-null iff status is COMPLETED.
const (
	EventStatusPending   = "PENDING"
	EventStatusCompleted = "COMPLETED"
	EventStatusCancelled = "CANCELLED"
)

// Event categories (closed set).
const (
	EventTypePlan        = "plan"
	EventTypeReunion     = "reunion"
	EventTypeMemorial    = "memorial"
	EventTypeWedding     = "wedding"
	EventTypeGraduation  = "graduation"
	EventTypeAchievement = "achievement"
	EventTypeMilestone   = "milestone"
	EventTypeOther       = "other"
)

// ValidEventStatus reports whether s is a known lifecycle state.
func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusPending, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// ValidEventType reports whether t is a known event category.
func ValidEventType(t string) bool {
	switch t {
	case EventTypePlan, EventTypeReunion, EventTypeMemorial, EventTypeWedding,
		EventTypeGraduation, EventTypeAchievement, EventTypeMilestone, EventTypeOther:
		return true
	}
	return false
}

type Event struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Date         time.Time  `json:"date"`
	Location     string     `json:"location"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedBy    string     `json:"created_by"`
	Participants []string   `json:"participants"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// EventFilter narrows event listings. Zero values mean "no constraint".
type EventFilter struct {
	Status         string
	Type           string
	From           *time.Time
	To             *time.Time
	FamilyMemberID string // matches events the member participates in
}
