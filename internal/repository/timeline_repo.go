package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"familytree/internal/model"
)

type TimelineRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTimelineRepository(db *pgxpool.Pool, logger *zap.Logger) *TimelineRepository {
	return &TimelineRepository{db: db, logger: logger}
}

const timelineColumns = `id, title, description, date, type, family_member_id,
       source_event_id, is_auto_added, created_at`

// Insert stores a user-authored timeline entry.
func (r *TimelineRepository) Insert(ctx context.Context, t *model.TimelineEntry) (string, error) {
	r.logger.Debug("Inserting timeline entry", zap.String("title", t.Title))
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
        INSERT INTO timeline_entries
            (id, title, description, date, type, family_member_id, source_event_id, is_auto_added)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at
    `
	err := r.db.QueryRow(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.Date,
		t.Type,
		t.FamilyMemberID,
		t.SourceEventID,
		t.IsAutoAdded,
	).Scan(&t.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert timeline entry",
			zap.Error(err),
			zap.String("title", t.Title),
		)
		return "", err
	}

	if err := r.SetRelatedMembers(ctx, t.ID, t.RelatedMembers); err != nil {
		return "", err
	}

	r.logger.Info("Timeline entry inserted successfully", zap.String("entry_id", t.ID))
	return t.ID, nil
}

// UpsertBySourceEvent inserts the derived entry for an event, or touches the
// existing one. The unique constraint on source_event_id is what makes
// concurrent materializations converge; on conflict only is_auto_added is
// reaffirmed so manual edits to a generated entry survive.
func (r *TimelineRepository) UpsertBySourceEvent(ctx context.Context, t *model.TimelineEntry) (string, error) {
	if t.SourceEventID == nil {
		return "", errors.New("timeline entry has no source event id")
	}
	r.logger.Debug("Upserting derived timeline entry",
		zap.String("source_event_id", *t.SourceEventID),
	)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
        INSERT INTO timeline_entries
            (id, title, description, date, type, family_member_id, source_event_id, is_auto_added)
        VALUES ($1, $2, $3, $4, $5, $6, $7, true)
        ON CONFLICT (source_event_id) DO UPDATE
        SET is_auto_added = true
        RETURNING id
    `
	var id string
	err := r.db.QueryRow(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.Date,
		t.Type,
		t.FamilyMemberID,
		t.SourceEventID,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to upsert derived timeline entry",
			zap.Error(err),
			zap.String("source_event_id", *t.SourceEventID),
		)
		return "", err
	}
	t.ID = id

	// Related members only matter on first materialization; duplicates are
	// skipped, removed participants are left alone.
	if err := r.addRelatedMembers(ctx, id, t.RelatedMembers); err != nil {
		return "", err
	}

	r.logger.Info("Derived timeline entry upserted",
		zap.String("entry_id", id),
		zap.String("source_event_id", *t.SourceEventID),
	)
	return id, nil
}

// DeleteBySourceEvent retracts the derived entry for an event. Returns the
// number of rows removed; zero is not an error.
func (r *TimelineRepository) DeleteBySourceEvent(ctx context.Context, eventID string) (int64, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM timeline_entries WHERE source_event_id = $1`, eventID)
	if err != nil {
		r.logger.Error("Failed to retract timeline entry",
			zap.Error(err),
			zap.String("source_event_id", eventID),
		)
		return 0, err
	}
	removed := result.RowsAffected()
	if removed > 0 {
		r.logger.Info("Derived timeline entry retracted",
			zap.String("source_event_id", eventID),
		)
	}
	return removed, nil
}

func (r *TimelineRepository) GetByID(ctx context.Context, id string) (*model.TimelineEntry, error) {
	query := `SELECT ` + timelineColumns + ` FROM timeline_entries WHERE id = $1`
	var t model.TimelineEntry
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Date,
		&t.Type,
		&t.FamilyMemberID,
		&t.SourceEventID,
		&t.IsAutoAdded,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		r.logger.Error("Failed to query timeline entry",
			zap.Error(err),
			zap.String("entry_id", id),
		)
		return nil, err
	}

	t.RelatedMembers, err = r.relatedMembers(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update replaces the scalar attributes of a user-visible entry.
func (r *TimelineRepository) Update(ctx context.Context, t *model.TimelineEntry) error {
	r.logger.Debug("Updating timeline entry", zap.String("entry_id", t.ID))
	query := `
        UPDATE timeline_entries
        SET title = $2, description = $3, date = $4, type = $5, family_member_id = $6
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.Date,
		t.Type,
		t.FamilyMemberID,
	)
	if err != nil {
		r.logger.Error("Failed to update timeline entry",
			zap.Error(err),
			zap.String("entry_id", t.ID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Timeline entry updated successfully", zap.String("entry_id", t.ID))
	return nil
}

func (r *TimelineRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM timeline_entries WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete timeline entry",
			zap.Error(err),
			zap.String("entry_id", id),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Timeline entry deleted successfully", zap.String("entry_id", id))
	return nil
}

// List returns persisted entries matching the filter, newest first.
func (r *TimelineRepository) List(ctx context.Context, f model.TimelineFilter) ([]model.TimelineEntry, error) {
	r.logger.Debug("Listing timeline entries", zap.String("type", f.Type))

	query := `SELECT ` + timelineColumns + ` FROM timeline_entries WHERE 1=1`
	args := []any{}
	n := 0

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
		query += fmt.Sprintf(
			" AND (family_member_id = $%d OR id IN (SELECT entry_id FROM timeline_related_members WHERE member_id = $%d))",
			n, n,
		)
		args = append(args, f.FamilyMemberID)
	}
	query += " ORDER BY date DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query timeline entries", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	entries := []model.TimelineEntry{}
	for rows.Next() {
		var t model.TimelineEntry
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.Date,
			&t.Type,
			&t.FamilyMemberID,
			&t.SourceEventID,
			&t.IsAutoAdded,
			&t.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan timeline row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].RelatedMembers, err = r.relatedMembers(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
	}

	r.logger.Info("Timeline entries listed successfully", zap.Int("count", len(entries)))
	return entries, nil
}

// SetRelatedMembers replaces the related-member set for an entry.
func (r *TimelineRepository) SetRelatedMembers(ctx context.Context, entryID string, memberIDs []string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM timeline_related_members WHERE entry_id = $1`, entryID); err != nil {
		r.logger.Error("Failed to clear related members",
			zap.Error(err),
			zap.String("entry_id", entryID),
		)
		return err
	}
	return r.addRelatedMembers(ctx, entryID, memberIDs)
}

func (r *TimelineRepository) addRelatedMembers(ctx context.Context, entryID string, memberIDs []string) error {
	query := `
        INSERT INTO timeline_related_members (entry_id, member_id)
        VALUES ($1, $2)
        ON CONFLICT (entry_id, member_id) DO NOTHING
    `
	for _, memberID := range memberIDs {
		if _, err := r.db.Exec(ctx, query, entryID, memberID); err != nil {
			r.logger.Error("Failed to insert related member",
				zap.Error(err),
				zap.String("entry_id", entryID),
				zap.String("member_id", memberID),
			)
			return err
		}
	}
	return nil
}

func (r *TimelineRepository) relatedMembers(ctx context.Context, entryID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT member_id FROM timeline_related_members WHERE entry_id = $1`, entryID)
	if err != nil {
		r.logger.Error("Failed to query related members",
			zap.Error(err),
			zap.String("entry_id", entryID),
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
