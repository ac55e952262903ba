package model

import "time"

// Timeline entry categories (closed set).
const (
	TimelineTypeBirth       = "birth"
	TimelineTypeDeath       = "death"
	TimelineTypeMarriage    = "marriage"
	TimelineTypeGraduation  = "graduation"
	TimelineTypeCareer      = "career"
	TimelineTypeAchievement = "achievement"
	TimelineTypeEvent       = "event"
	TimelineTypeOther       = "other"
)

// ValidTimelineType reports whether t is a known timeline category.
func ValidTimelineType(t string) bool {
	switch t {
	case TimelineTypeBirth, TimelineTypeDeath, TimelineTypeMarriage,
		TimelineTypeGraduation, TimelineTypeCareer, TimelineTypeAchievement,
		TimelineTypeEvent, TimelineTypeOther:
		return true
	}
	return false
}

// TimelineEntry is a row on the family timeline. Persisted entries are either
// user-authored (IsAutoAdded=false) or derived from a completed Event
// (SourceEventID set, IsAutoAdded=true; at most one entry per event).
// Computed entries (IsComputed=true) are synthesized at read time from member
// date fields and never persisted; their ids live in a disjoint namespace
// ("birth-<memberID>" and friends).
type TimelineEntry struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Date           time.Time `json:"date"`
	Type           string    `json:"type"`
	FamilyMemberID *string   `json:"family_member_id,omitempty"`
	RelatedMembers []string  `json:"related_members"`
	SourceEventID  *string   `json:"source_event_id,omitempty"`
	IsAutoAdded    bool      `json:"is_auto_added"`
	IsComputed     bool      `json:"is_computed"`
	CreatedAt      time.Time `json:"created_at"`
}

// TimelineFilter narrows timeline listings. Zero values mean "no constraint".
type TimelineFilter struct {
	Type           string
	From           *time.Time
	To             *time.Time
	FamilyMemberID string
}
