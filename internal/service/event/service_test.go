package event

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/auth"
	"familytree/internal/service/errs"
	"familytree/pkg/rbac"
)

type memEvents struct {
	events map[string]*model.Event
	seq    int
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[string]*model.Event{}}
}

func (s *memEvents) Insert(ctx context.Context, e *model.Event) (string, error) {
	s.seq++
	e.ID = fmt.Sprintf("ev%d", s.seq)
	cp := *e
	s.events[e.ID] = &cp
	return e.ID, nil
}

func (s *memEvents) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s *memEvents) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	out := []model.Event{}
	for _, e := range s.events {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *memEvents) Update(ctx context.Context, e *model.Event) error {
	if _, ok := s.events[e.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *memEvents) SetParticipants(ctx context.Context, eventID string, memberIDs []string) error {
	e, ok := s.events[eventID]
	if !ok {
		return pgx.ErrNoRows
	}
	e.Participants = append([]string{}, memberIDs...)
	return nil
}

func (s *memEvents) Delete(ctx context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.events, id)
	return nil
}

type memResolver struct {
	known map[string]bool
}

func (r *memResolver) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	missing := []string{}
	for _, id := range ids {
		if !r.known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// recordProjector tracks which events currently have a derived entry.
type recordProjector struct {
	materialized map[string]bool
	pendingFlags map[string]bool
}

func newRecordProjector() *recordProjector {
	return &recordProjector{materialized: map[string]bool{}, pendingFlags: map[string]bool{}}
}

func (p *recordProjector) Materialize(ctx context.Context, ev model.Event, wasPending bool) error {
	p.materialized[ev.ID] = true
	p.pendingFlags[ev.ID] = wasPending
	return nil
}

func (p *recordProjector) Retract(ctx context.Context, eventID string) error {
	delete(p.materialized, eventID)
	return nil
}

type recordSweeper struct {
	calls int
}

func (s *recordSweeper) Sweep(ctx context.Context, now time.Time) error {
	s.calls++
	return nil
}

type capturePublisher struct {
	keys []string
}

func (p *capturePublisher) Publish(routingKey string, payload any) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

type noopCache struct{}

func (noopCache) Invalidate(ctx context.Context) {}

var (
	owner = auth.Actor{UserID: "u1", Role: rbac.RoleMember}
	other = auth.Actor{UserID: "u2", Role: rbac.RoleMember}
	admin = auth.Actor{UserID: "u3", Role: rbac.RoleAdmin}
)

func newTestService(t *testing.T, known ...string) (*Service, *memEvents, *recordProjector, *recordSweeper, *capturePublisher) {
	t.Helper()
	events := newMemEvents()
	resolver := &memResolver{known: map[string]bool{}}
	for _, id := range known {
		resolver.known[id] = true
	}
	projector := newRecordProjector()
	sweeper := &recordSweeper{}
	pub := &capturePublisher{}
	svc := NewService(events, resolver, projector, sweeper, pub, noopCache{}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, events, projector, sweeper, pub
}

func validInput() CreateEventInput {
	return CreateEventInput{
		Title:       "Family Reunion",
		Description: "Annual get-together",
		Date:        time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		Type:        model.EventTypeReunion,
	}
}

func TestCreate_DefaultsToPending(t *testing.T) {
	svc, _, projector, _, _ := newTestService(t)

	ev, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	assert.Equal(t, model.EventStatusPending, ev.Status)
	assert.Nil(t, ev.CompletedAt)
	assert.Equal(t, "u1", ev.CreatedBy)
	assert.False(t, projector.materialized[ev.ID], "pending events have no derived entry")
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), owner, CreateEventInput{Type: "picnic", Status: "DONE"})
	var vErr *errs.ValidationError
	require.True(t, errors.As(err, &vErr))
	fields := map[string]bool{}
	for _, f := range vErr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["date"])
	assert.True(t, fields["type"])
	assert.True(t, fields["status"])
}

func TestCreate_RejectsUnknownParticipants(t *testing.T) {
	svc, _, _, _, _ := newTestService(t, "m1")

	in := validInput()
	in.Participants = []string{"m1", "ghost"}
	_, err := svc.Create(context.Background(), owner, in)
	var vErr *errs.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Error(), "ghost")
}

func TestCreate_CompletedIsBackdated(t *testing.T) {
	svc, _, projector, _, _ := newTestService(t)

	in := validInput()
	in.Status = model.EventStatusCompleted
	ev, err := svc.Create(context.Background(), owner, in)
	require.NoError(t, err)

	require.NotNil(t, ev.CompletedAt)
	assert.Equal(t, in.Date, *ev.CompletedAt, "completion date is the event date, not wall clock")
	assert.True(t, projector.materialized[ev.ID])
	assert.False(t, projector.pendingFlags[ev.ID], "explicit completion carries no auto prefix")
}

func TestUpdate_IntoCompletedMaterializes(t *testing.T) {
	svc, events, projector, _, _ := newTestService(t)
	ev, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	completed := model.EventStatusCompleted
	updated, err := svc.Update(context.Background(), owner, ev.ID, UpdateEventInput{Status: &completed})
	require.NoError(t, err)

	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, svc.now(), *updated.CompletedAt, "explicit completion stamps the current time")
	assert.True(t, projector.materialized[ev.ID])
	assert.Equal(t, model.EventStatusCompleted, events.events[ev.ID].Status)
}

func TestUpdate_OutOfCompletedRetracts(t *testing.T) {
	svc, _, projector, _, _ := newTestService(t)
	in := validInput()
	in.Status = model.EventStatusCompleted
	ev, err := svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	require.True(t, projector.materialized[ev.ID])

	pending := model.EventStatusPending
	updated, err := svc.Update(context.Background(), owner, ev.ID, UpdateEventInput{Status: &pending})
	require.NoError(t, err)

	assert.Nil(t, updated.CompletedAt)
	assert.False(t, projector.materialized[ev.ID], "leaving COMPLETED retracts the derived entry")
}

func TestUpdate_CancelledPublishesAndRetracts(t *testing.T) {
	svc, _, projector, _, pub := newTestService(t)
	in := validInput()
	in.Status = model.EventStatusCompleted
	ev, err := svc.Create(context.Background(), owner, in)
	require.NoError(t, err)

	cancelled := model.EventStatusCancelled
	updated, err := svc.Update(context.Background(), owner, ev.ID, UpdateEventInput{Status: &cancelled})
	require.NoError(t, err)

	assert.Nil(t, updated.CompletedAt)
	assert.False(t, projector.materialized[ev.ID])
	assert.Contains(t, pub.keys, "event.cancelled")
}

func TestUpdate_PendingToCancelledPublishes(t *testing.T) {
	svc, _, projector, _, pub := newTestService(t)
	ev, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	cancelled := model.EventStatusCancelled
	_, err = svc.Update(context.Background(), owner, ev.ID, UpdateEventInput{Status: &cancelled})
	require.NoError(t, err)

	assert.Contains(t, pub.keys, "event.cancelled")
	assert.False(t, projector.materialized[ev.ID], "a pending event never had an entry to retract")
}

func TestUpdate_OnlyOwnerOrAdmin(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ev, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	title := "Renamed"
	_, err = svc.Update(context.Background(), other, ev.ID, UpdateEventInput{Title: &title})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = svc.Update(context.Background(), admin, ev.ID, UpdateEventInput{Title: &title})
	assert.NoError(t, err, "admins may mutate any event")
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	_, err := svc.Update(context.Background(), owner, "missing", UpdateEventInput{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete_RetractsDerivedEntry(t *testing.T) {
	svc, events, projector, _, _ := newTestService(t)
	in := validInput()
	in.Status = model.EventStatusCompleted
	ev, err := svc.Create(context.Background(), owner, in)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), owner, ev.ID))
	assert.False(t, projector.materialized[ev.ID])
	_, ok := events.events[ev.ID]
	assert.False(t, ok)
}

func TestDelete_OnlyOwnerOrAdmin(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ev, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), other, ev.ID), errs.ErrForbidden)
	assert.NoError(t, svc.Delete(context.Background(), admin, ev.ID))
}

func TestList_RunsSweepFirst(t *testing.T) {
	svc, _, _, sweeper, _ := newTestService(t)

	_, err := svc.List(context.Background(), model.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, sweeper.calls)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
