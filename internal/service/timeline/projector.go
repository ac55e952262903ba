package timeline

import (
	"context"

	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/pkg/metrics"
	"familytree/pkg/mq"
)

// AutoCompletedPrefix marks entries for events the sweep promoted, as opposed
// to events that were created or explicitly updated as completed.
const AutoCompletedPrefix = "Completed: "

// EntryWriter is the slice of the timeline store the projector needs.
type EntryWriter interface {
	UpsertBySourceEvent(ctx context.Context, t *model.TimelineEntry) (string, error)
	DeleteBySourceEvent(ctx context.Context, eventID string) (int64, error)
}

// Publisher sends domain events to the message bus.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Projector keeps the derived timeline entry of each completed event in
// lockstep with its source. All writes funnel through the upsert keyed on the
// unique source_event_id, so repeated materializations converge on one row.
type Projector struct {
	entries   EntryWriter
	publisher Publisher
	logger    *zap.Logger
}

func NewProjector(entries EntryWriter, publisher Publisher, logger *zap.Logger) *Projector {
	return &Projector{entries: entries, publisher: publisher, logger: logger}
}

// Materialize upserts the derived entry for ev. wasPending marks events the
// sweep found still PENDING; their titles get the auto-completion prefix.
// Idempotent: a second call only reaffirms is_auto_added, so manual edits to
// the generated entry are preserved.
func (p *Projector) Materialize(ctx context.Context, ev model.Event, wasPending bool) error {
	title := ev.Title
	if wasPending {
		title = AutoCompletedPrefix + ev.Title
	}
	description := ev.Description
	if description == "" {
		description = "Automatically added from event " + ev.Title
	}

	var familyMemberID *string
	if len(ev.Participants) == 1 {
		id := ev.Participants[0]
		familyMemberID = &id
	}

	sourceID := ev.ID
	entry := &model.TimelineEntry{
		Title:          title,
		Description:    description,
		Date:           ev.Date,
		Type:           model.TimelineTypeEvent,
		FamilyMemberID: familyMemberID,
		RelatedMembers: ev.Participants,
		SourceEventID:  &sourceID,
		IsAutoAdded:    true,
	}

	entryID, err := p.entries.UpsertBySourceEvent(ctx, entry)
	if err != nil {
		p.logger.Error("Failed to materialize timeline entry",
			zap.Error(err),
			zap.String("event_id", ev.ID),
		)
		return err
	}

	p.logger.Info("Timeline entry materialized",
		zap.String("event_id", ev.ID),
		zap.String("entry_id", entryID),
		zap.Bool("was_pending", wasPending),
	)

	if p.publisher != nil {
		payload := mq.TimelineEntryPayload{
			EntryID:       entryID,
			Title:         entry.Title,
			Date:          entry.Date,
			SourceEventID: ev.ID,
			AutoAdded:     true,
		}
		if err := p.publisher.Publish(mq.RoutingTimelineEntryNew, payload); err != nil {
			p.logger.Warn("Failed to publish timeline entry event", zap.Error(err))
		}
	}
	return nil
}

// Retract deletes the derived entry for eventID. No-op when none exists.
func (p *Projector) Retract(ctx context.Context, eventID string) error {
	removed, err := p.entries.DeleteBySourceEvent(ctx, eventID)
	if err != nil {
		p.logger.Error("Failed to retract timeline entry",
			zap.Error(err),
			zap.String("event_id", eventID),
		)
		return err
	}
	if removed > 0 {
		metrics.TimelineRetractedCount.Inc()
		p.logger.Info("Timeline entry retracted", zap.String("event_id", eventID))
	}
	return nil
}
