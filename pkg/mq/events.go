package mq

import "time"

// Routing keys published on the family.events exchange.
const (
	RoutingEventCreated     = "event.created"
	RoutingEventCompleted   = "event.completed"
	RoutingEventCancelled   = "event.cancelled"
	RoutingMemberCreated    = "member.created"
	RoutingMemberDeleted    = "member.deleted"
	RoutingTimelineEntryNew = "timeline.entry.created"
)

type EventCompletedPayload struct {
	EventID      string    `json:"event_id"`
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	CompletedAt  time.Time `json:"completed_at"`
	AutoPromoted bool      `json:"auto_promoted"`
}

type EventLifecyclePayload struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	Status  string    `json:"status"`
}

type MemberPayload struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
}

type TimelineEntryPayload struct {
	EntryID       string    `json:"entry_id"`
	Title         string    `json:"title"`
	Date          time.Time `json:"date"`
	SourceEventID string    `json:"source_event_id,omitempty"`
	AutoAdded     bool      `json:"auto_added"`
}
