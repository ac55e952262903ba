package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"familytree/internal/model"
)

type EventRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewEventRepository(db *pgxpool.Pool, logger *zap.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger}
}

const eventColumns = `id, title, description, date, location, type, status,
       completed_at, created_by, created_at, updated_at`

func (r *EventRepository) Insert(ctx context.Context, e *model.Event) (string, error) {
	r.logger.Debug("Inserting event",
		zap.String("title", e.Title),
		zap.String("status", e.Status),
	)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
        INSERT INTO events
            (id, title, description, date, location, type, status, completed_at, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		e.ID,
		e.Title,
		e.Description,
		e.Date,
		e.Location,
		e.Type,
		e.Status,
		e.CompletedAt,
		e.CreatedBy,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert event",
			zap.Error(err),
			zap.String("title", e.Title),
		)
		return "", err
	}

	if err := r.SetParticipants(ctx, e.ID, e.Participants); err != nil {
		return "", err
	}

	r.logger.Info("Event inserted successfully",
		zap.String("event_id", e.ID),
		zap.String("status", e.Status),
	)
	return e.ID, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var e model.Event
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Date,
		&e.Location,
		&e.Type,
		&e.Status,
		&e.CompletedAt,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		r.logger.Error("Failed to query event",
			zap.Error(err),
			zap.String("event_id", id),
		)
		return nil, err
	}

	e.Participants, err = r.participants(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events matching the filter, newest first.
func (r *EventRepository) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	r.logger.Debug("Listing events",
		zap.String("status", f.Status),
		zap.String("type", f.Type),
	)

	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []any{}
	n := 0

	if f.Status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, f.Status)
	}
	if f.Type != "" {
		n++
		query += fmt.Sprintf(" AND type = $%d", n)
		args = append(args, f.Type)
	}
	if f.From != nil {
		n++
		query += fmt.Sprintf(" AND date >= $%d", n)
		args = append(args, *f.From)
	}
	if f.To != nil {
		n++
		query += fmt.Sprintf(" AND date <= $%d", n)
		args = append(args, *f.To)
	}
	if f.FamilyMemberID != "" {
		n++
		query += fmt.Sprintf(" AND id IN (SELECT event_id FROM event_participants WHERE member_id = $%d)", n)
		args = append(args, f.FamilyMemberID)
	}
	query += " ORDER BY date DESC"

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Events listed successfully", zap.Int("count", len(events)))
	return events, nil
}

// Update replaces the scalar attributes of an event. Status transitions go
// through SetStatus or Promote so completed_at stays consistent.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	r.logger.Debug("Updating event", zap.String("event_id", e.ID))
	query := `
        UPDATE events
        SET title = $2, description = $3, date = $4, location = $5, type = $6,
            status = $7, completed_at = $8, updated_at = NOW()
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query,
		e.ID,
		e.Title,
		e.Description,
		e.Date,
		e.Location,
		e.Type,
		e.Status,
		e.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update event",
			zap.Error(err),
			zap.String("event_id", e.ID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Event updated successfully", zap.String("event_id", e.ID))
	return nil
}

// SetParticipants replaces the participant set for an event.
func (r *EventRepository) SetParticipants(ctx context.Context, eventID string, memberIDs []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1`, eventID); err != nil {
		r.logger.Error("Failed to clear event participants",
			zap.Error(err),
			zap.String("event_id", eventID),
		)
		return err
	}

	query := `
        INSERT INTO event_participants (event_id, member_id)
        VALUES ($1, $2)
        ON CONFLICT (event_id, member_id) DO NOTHING
    `
	for _, memberID := range memberIDs {
		if _, err := r.db.Exec(ctx, query, eventID, memberID); err != nil {
			r.logger.Error("Failed to insert event participant",
				zap.Error(err),
				zap.String("event_id", eventID),
				zap.String("member_id", memberID),
			)
			return err
		}
	}
	return nil
}

// SetStatus updates status and completed_at together.
func (r *EventRepository) SetStatus(ctx context.Context, id, status string, completedAt *time.Time) error {
	r.logger.Debug("Setting event status",
		zap.String("event_id", id),
		zap.String("status", status),
	)
	query := `UPDATE events SET status = $2, completed_at = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, status, completedAt)
	if err != nil {
		r.logger.Error("Failed to set event status",
			zap.Error(err),
			zap.String("event_id", id),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Promote flips a still-PENDING event to COMPLETED with the given completion
// time. Returns false when another request promoted it first; the guard on
// status makes concurrent sweeps converge without double promotion.
func (r *EventRepository) Promote(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	query := `
        UPDATE events
        SET status = 'COMPLETED', completed_at = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'PENDING'
    `
	result, err := r.db.Exec(ctx, query, id, completedAt)
	if err != nil {
		r.logger.Error("Failed to promote event",
			zap.Error(err),
			zap.String("event_id", id),
		)
		return false, err
	}
	promoted := result.RowsAffected() > 0
	if promoted {
		r.logger.Info("Event promoted to completed",
			zap.String("event_id", id),
			zap.Time("completed_at", completedAt),
		)
	}
	return promoted, nil
}

// ListPendingPast returns PENDING events whose date has elapsed, oldest first,
// capped at limit so a single sweep stays bounded.
func (r *EventRepository) ListPendingPast(ctx context.Context, now time.Time, limit int) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
        FROM events
        WHERE status = 'PENDING' AND date <= $1
        ORDER BY date ASC
        LIMIT $2`
	return r.queryEvents(ctx, query, now, limit)
}

// ListCompletedWithoutEntry returns COMPLETED events missing their derived
// timeline entry (lost to a prior partial failure or manual deletion).
func (r *EventRepository) ListCompletedWithoutEntry(ctx context.Context, limit int) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
        FROM events e
        WHERE e.status = 'COMPLETED'
        AND NOT EXISTS (
            SELECT 1 FROM timeline_entries t WHERE t.source_event_id = e.id
        )
        ORDER BY e.date ASC
        LIMIT $1`
	return r.queryEvents(ctx, query, limit)
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	r.logger.Debug("Deleting event", zap.String("event_id", id))
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete event",
			zap.Error(err),
			zap.String("event_id", id),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Event deleted successfully", zap.String("event_id", id))
	return nil
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Description,
			&e.Date,
			&e.Location,
			&e.Type,
			&e.Status,
			&e.CompletedAt,
			&e.CreatedBy,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan event row", zap.Error(err))
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range events {
		events[i].Participants, err = r.participants(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (r *EventRepository) participants(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT member_id FROM event_participants WHERE event_id = $1`, eventID)
	if err != nil {
		r.logger.Error("Failed to query event participants",
			zap.Error(err),
			zap.String("event_id", eventID),
		)
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
