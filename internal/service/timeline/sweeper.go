package timeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/pkg/metrics"
	"familytree/pkg/mq"
)

// DefaultSweepLimit bounds how many events one sweep touches; whatever is
// left over is picked up by the next listing request.
const DefaultSweepLimit = 500

// EventSource is the slice of the event store the sweeper needs.
type EventSource interface {
	ListPendingPast(ctx context.Context, now time.Time, limit int) ([]model.Event, error)
	ListCompletedWithoutEntry(ctx context.Context, limit int) ([]model.Event, error)
	Promote(ctx context.Context, id string, completedAt time.Time) (bool, error)
}

// Sweeper is the lazy catch-up pass run at the start of every event or
// timeline listing. There is no background worker; staleness is bounded only
// by traffic. Re-running is safe: promotion is guarded on status and
// materialization converges on the source_event_id upsert.
type Sweeper struct {
	events    EventSource
	projector *Projector
	publisher Publisher
	logger    *zap.Logger
	limit     int
}

func NewSweeper(events EventSource, projector *Projector, publisher Publisher, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		events:    events,
		projector: projector,
		publisher: publisher,
		logger:    logger,
		limit:     DefaultSweepLimit,
	}
}

// SetLimit overrides the per-sweep batch size.
func (s *Sweeper) SetLimit(limit int) {
	if limit > 0 {
		s.limit = limit
	}
}

// Sweep promotes PENDING events whose date has elapsed and repairs COMPLETED
// events that lost their timeline entry. now is injected by the caller.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	pending, err := s.events.ListPendingPast(ctx, now, s.limit)
	if err != nil {
		s.logger.Error("Sweep: failed to list pending past events", zap.Error(err))
		return err
	}

	for _, ev := range pending {
		// completed_at records the event's own scheduled date, not when the
		// sweep happened to run.
		promoted, err := s.events.Promote(ctx, ev.ID, ev.Date)
		if err != nil {
			s.logger.Error("Sweep: failed to promote event",
				zap.Error(err),
				zap.String("event_id", ev.ID),
			)
			continue
		}
		if promoted {
			metrics.EventsPromotedCount.WithLabelValues("sweep").Inc()
			if s.publisher != nil {
				payload := mq.EventCompletedPayload{
					EventID:      ev.ID,
					Title:        ev.Title,
					Date:         ev.Date,
					CompletedAt:  ev.Date,
					AutoPromoted: true,
				}
				if err := s.publisher.Publish(mq.RoutingEventCompleted, payload); err != nil {
					s.logger.Warn("Sweep: failed to publish event.completed", zap.Error(err))
				}
			}
		}

		// Materialize regardless of who won the promotion race; the upsert is
		// a no-op update when the entry already exists.
		if err := s.projector.Materialize(ctx, ev, true); err != nil {
			s.logger.Error("Sweep: failed to materialize promoted event",
				zap.Error(err),
				zap.String("event_id", ev.ID),
			)
			continue
		}
		metrics.TimelineMaterializedCount.WithLabelValues("sweep").Inc()
	}

	missing, err := s.events.ListCompletedWithoutEntry(ctx, s.limit)
	if err != nil {
		s.logger.Error("Sweep: failed to list completed events without entries", zap.Error(err))
		return err
	}

	for _, ev := range missing {
		if err := s.projector.Materialize(ctx, ev, false); err != nil {
			s.logger.Error("Sweep: failed to re-materialize event",
				zap.Error(err),
				zap.String("event_id", ev.ID),
			)
			continue
		}
		metrics.TimelineMaterializedCount.WithLabelValues("repair").Inc()
	}

	if len(pending) > 0 || len(missing) > 0 {
		s.logger.Info("Sweep completed",
			zap.Int("promoted", len(pending)),
			zap.Int("repaired", len(missing)),
		)
	}
	return nil
}
