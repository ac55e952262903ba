package event

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/auth"
	"familytree/internal/service/errs"
	"familytree/pkg/metrics"
	"familytree/pkg/mq"
)

// Store is the event persistence surface the service drives.
type Store interface {
	Insert(ctx context.Context, e *model.Event) (string, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	SetParticipants(ctx context.Context, eventID string, memberIDs []string) error
	Delete(ctx context.Context, id string) error
}

// MemberResolver checks that participant ids reference existing members.
type MemberResolver interface {
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

// Projector maintains the derived timeline entry for completed events.
type Projector interface {
	Materialize(ctx context.Context, ev model.Event, wasPending bool) error
	Retract(ctx context.Context, eventID string) error
}

// Sweeper is the lazy auto-promotion pass run before listings.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) error
}

// Publisher sends domain events to the message bus.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Invalidator drops cached timeline listings after event mutations.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service owns the event lifecycle: PENDING -> COMPLETED (explicitly or via
// the sweep), with COMPLETED re-enterable back to PENDING or CANCELLED.
// Every transition into COMPLETED materializes the derived timeline entry;
// every transition out of it retracts the entry.
type Service struct {
	events    Store
	members   MemberResolver
	projector Projector
	sweeper   Sweeper
	publisher Publisher
	cache     Invalidator
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(
	events Store,
	members MemberResolver,
	projector Projector,
	sweeper Sweeper,
	publisher Publisher,
	cache Invalidator,
	logger *zap.Logger,
) *Service {
	return &Service{
		events:    events,
		members:   members,
		projector: projector,
		sweeper:   sweeper,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateEventInput struct {
	Title        string
	Description  string
	Date         time.Time
	Location     string
	Type         string
	Status       string
	Participants []string
}

// Create validates and persists a new event. Events created COMPLETED are
// back-dated: completed_at takes the event date, and the timeline entry is
// materialized immediately.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateEventInput) (*model.Event, error) {
	v := &errs.ValidationError{}
	if in.Title == "" {
		v.Add("title", "title is required")
	}
	if in.Description == "" {
		v.Add("description", "description is required")
	}
	if in.Date.IsZero() {
		v.Add("date", "date is required")
	}
	if in.Type == "" {
		v.Add("type", "type is required")
	} else if !model.ValidEventType(in.Type) {
		v.Add("type", "unknown event type")
	}
	status := in.Status
	if status == "" {
		status = model.EventStatusPending
	} else if !model.ValidEventStatus(status) {
		v.Add("status", "unknown event status")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.resolveParticipants(ctx, in.Participants); err != nil {
		return nil, err
	}

	ev := &model.Event{
		Title:        in.Title,
		Description:  in.Description,
		Date:         in.Date,
		Location:     in.Location,
		Type:         in.Type,
		Status:       status,
		CreatedBy:    actor.UserID,
		Participants: dedupe(in.Participants),
	}
	if status == model.EventStatusCompleted {
		completedAt := in.Date
		ev.CompletedAt = &completedAt
	}

	if _, err := s.events.Insert(ctx, ev); err != nil {
		return nil, err
	}

	if ev.Status == model.EventStatusCompleted {
		if err := s.projector.Materialize(ctx, *ev, false); err != nil {
			return nil, err
		}
		metrics.TimelineMaterializedCount.WithLabelValues("create").Inc()
		s.publishCompleted(*ev, false)
	}

	s.cache.Invalidate(ctx)
	s.publishLifecycle(mq.RoutingEventCreated, *ev)
	s.logger.Info("Event created",
		zap.String("event_id", ev.ID),
		zap.String("status", ev.Status),
	)
	return ev, nil
}

type UpdateEventInput struct {
	Title        *string
	Description  *string
	Date         *time.Time
	Location     *string
	Type         *string
	Status       *string
	Participants *[]string
}

// Update applies a partial patch. Only the creator or an admin may mutate an
// event. Status transitions keep completed_at and the derived timeline entry
// consistent.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateEventInput) (*model.Event, error) {
	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	if !actor.CanMutate(existing.CreatedBy) {
		return nil, errs.ErrForbidden
	}

	ev := *existing
	if in.Title != nil {
		ev.Title = *in.Title
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Date != nil {
		ev.Date = *in.Date
	}
	if in.Location != nil {
		ev.Location = *in.Location
	}
	if in.Type != nil {
		if !model.ValidEventType(*in.Type) {
			return nil, errs.Validation("type", "unknown event type")
		}
		ev.Type = *in.Type
	}
	if in.Status != nil {
		if !model.ValidEventStatus(*in.Status) {
			return nil, errs.Validation("status", "unknown event status")
		}
		ev.Status = *in.Status
	}
	if in.Participants != nil {
		if err := s.resolveParticipants(ctx, *in.Participants); err != nil {
			return nil, err
		}
		ev.Participants = dedupe(*in.Participants)
	}

	wasCompleted := existing.Status == model.EventStatusCompleted
	nowCompleted := ev.Status == model.EventStatusCompleted
	switch {
	case !wasCompleted && nowCompleted:
		t := s.now()
		ev.CompletedAt = &t
	case wasCompleted && !nowCompleted:
		ev.CompletedAt = nil
	}

	if err := s.events.Update(ctx, &ev); err != nil {
		return nil, err
	}
	if in.Participants != nil {
		if err := s.events.SetParticipants(ctx, id, ev.Participants); err != nil {
			return nil, err
		}
	}

	switch {
	case !wasCompleted && nowCompleted:
		if err := s.projector.Materialize(ctx, ev, false); err != nil {
			return nil, err
		}
		metrics.EventsPromotedCount.WithLabelValues("update").Inc()
		metrics.TimelineMaterializedCount.WithLabelValues("update").Inc()
		s.publishCompleted(ev, false)
	case wasCompleted && !nowCompleted:
		if err := s.projector.Retract(ctx, id); err != nil {
			return nil, err
		}
	}

	if ev.Status == model.EventStatusCancelled && existing.Status != model.EventStatusCancelled {
		s.publishLifecycle(mq.RoutingEventCancelled, ev)
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("Event updated",
		zap.String("event_id", id),
		zap.String("status", ev.Status),
	)
	return &ev, nil
}

// Delete removes an event and its derived timeline entry. Only the creator
// or an admin may delete. The entry is retracted before the row goes away.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	if !actor.CanMutate(existing.CreatedBy) {
		return errs.ErrForbidden
	}

	if err := s.projector.Retract(ctx, id); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("Event deleted", zap.String("event_id", id))
	return nil
}

// List runs the auto-promotion sweep, then returns events matching the
// filter, newest first.
func (s *Service) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	if err := s.sweeper.Sweep(ctx, s.now()); err != nil {
		return nil, err
	}
	return s.events.List(ctx, f)
}

// Get returns one event.
func (s *Service) Get(ctx context.Context, id string) (*model.Event, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

func (s *Service) resolveParticipants(ctx context.Context, ids []string) error {
	missing, err := s.members.MissingIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return errs.Validation("participants", "unknown family member ids: "+strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) publishCompleted(ev model.Event, autoPromoted bool) {
	if s.publisher == nil || ev.CompletedAt == nil {
		return
	}
	payload := mq.EventCompletedPayload{
		EventID:      ev.ID,
		Title:        ev.Title,
		Date:         ev.Date,
		CompletedAt:  *ev.CompletedAt,
		AutoPromoted: autoPromoted,
	}
	if err := s.publisher.Publish(mq.RoutingEventCompleted, payload); err != nil {
		s.logger.Warn("Failed to publish event.completed", zap.Error(err))
	}
}

func (s *Service) publishLifecycle(routingKey string, ev model.Event) {
	if s.publisher == nil {
		return
	}
	payload := mq.EventLifecyclePayload{
		EventID: ev.ID,
		Title:   ev.Title,
		Date:    ev.Date,
		Status:  ev.Status,
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		s.logger.Warn("Failed to publish event lifecycle message",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func dedupe(ids []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
