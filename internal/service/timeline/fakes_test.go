package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"familytree/internal/model"
)

// memEntryStore mimics the timeline table, unique source_event_id included.
type memEntryStore struct {
	entries map[string]*model.TimelineEntry
	seq     int
}

func newMemEntryStore() *memEntryStore {
	return &memEntryStore{entries: map[string]*model.TimelineEntry{}}
}

func (s *memEntryStore) nextID() string {
	s.seq++
	return fmt.Sprintf("entry-%d", s.seq)
}

func (s *memEntryStore) bySourceEvent(eventID string) *model.TimelineEntry {
	for _, e := range s.entries {
		if e.SourceEventID != nil && *e.SourceEventID == eventID {
			return e
		}
	}
	return nil
}

func (s *memEntryStore) Insert(ctx context.Context, t *model.TimelineEntry) (string, error) {
	t.ID = s.nextID()
	cp := *t
	s.entries[t.ID] = &cp
	return t.ID, nil
}

func (s *memEntryStore) UpsertBySourceEvent(ctx context.Context, t *model.TimelineEntry) (string, error) {
	existing := s.bySourceEvent(*t.SourceEventID)
	if existing != nil {
		// Conflict path: only reaffirm the auto flag, keep manual edits.
		existing.IsAutoAdded = true
		for _, m := range t.RelatedMembers {
			if !contains(existing.RelatedMembers, m) {
				existing.RelatedMembers = append(existing.RelatedMembers, m)
			}
		}
		t.ID = existing.ID
		return existing.ID, nil
	}
	t.ID = s.nextID()
	t.IsAutoAdded = true
	cp := *t
	s.entries[t.ID] = &cp
	return t.ID, nil
}

func (s *memEntryStore) DeleteBySourceEvent(ctx context.Context, eventID string) (int64, error) {
	var removed int64
	for id, e := range s.entries {
		if e.SourceEventID != nil && *e.SourceEventID == eventID {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memEntryStore) GetByID(ctx context.Context, id string) (*model.TimelineEntry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s *memEntryStore) Update(ctx context.Context, t *model.TimelineEntry) error {
	e, ok := s.entries[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	related := e.RelatedMembers
	cp := *t
	cp.RelatedMembers = related
	s.entries[t.ID] = &cp
	return nil
}

func (s *memEntryStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.entries[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.entries, id)
	return nil
}

func (s *memEntryStore) List(ctx context.Context, f model.TimelineFilter) ([]model.TimelineEntry, error) {
	out := []model.TimelineEntry{}
	for _, e := range s.entries {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.From != nil && e.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Date.After(*f.To) {
			continue
		}
		if f.FamilyMemberID != "" {
			direct := e.FamilyMemberID != nil && *e.FamilyMemberID == f.FamilyMemberID
			if !direct && !contains(e.RelatedMembers, f.FamilyMemberID) {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *memEntryStore) SetRelatedMembers(ctx context.Context, entryID string, memberIDs []string) error {
	e, ok := s.entries[entryID]
	if !ok {
		return pgx.ErrNoRows
	}
	e.RelatedMembers = append([]string{}, memberIDs...)
	return nil
}

// memEventSource mimics the event table slice the sweeper reads.
type memEventSource struct {
	events  map[string]*model.Event
	entries *memEntryStore
}

func newMemEventSource(entries *memEntryStore) *memEventSource {
	return &memEventSource{events: map[string]*model.Event{}, entries: entries}
}

func (s *memEventSource) add(ev model.Event) {
	cp := ev
	s.events[ev.ID] = &cp
}

func (s *memEventSource) ListPendingPast(ctx context.Context, now time.Time, limit int) ([]model.Event, error) {
	out := []model.Event{}
	for _, ev := range s.events {
		if ev.Status == model.EventStatusPending && !ev.Date.After(now) {
			out = append(out, *ev)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memEventSource) ListCompletedWithoutEntry(ctx context.Context, limit int) ([]model.Event, error) {
	out := []model.Event{}
	for _, ev := range s.events {
		if ev.Status != model.EventStatusCompleted {
			continue
		}
		if s.entries.bySourceEvent(ev.ID) != nil {
			continue
		}
		out = append(out, *ev)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memEventSource) Promote(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	ev, ok := s.events[id]
	if !ok || ev.Status != model.EventStatusPending {
		return false, nil
	}
	ev.Status = model.EventStatusCompleted
	t := completedAt
	ev.CompletedAt = &t
	return true, nil
}

// memMembers backs virtual-entry computation and id checks.
type memMembers struct {
	members []model.FamilyMember
}

func (s *memMembers) List(ctx context.Context) ([]model.FamilyMember, error) {
	return append([]model.FamilyMember{}, s.members...), nil
}

func (s *memMembers) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	missing := []string{}
	for _, id := range ids {
		found := false
		for _, m := range s.members {
			if m.ID == id {
				found = true
				break
			}
		}
		if !found && !contains(missing, id) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// capturePublisher records published messages.
type capturePublisher struct {
	keys     []string
	payloads []any
}

func (p *capturePublisher) Publish(routingKey string, payload any) error {
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
