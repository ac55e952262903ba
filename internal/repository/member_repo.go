package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"familytree/internal/model"
)

type MemberRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMemberRepository(db *pgxpool.Pool, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{db: db, logger: logger}
}

const memberColumns = `id, name, birth_date, wedding_date, death_date, spouse_id,
       relationship, biography, occupation, location, profile_image, user_id,
       created_at, updated_at`

func (r *MemberRepository) Insert(ctx context.Context, m *model.FamilyMember) (string, error) {
	r.logger.Debug("Inserting family member", zap.String("name", m.Name))
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
        INSERT INTO family_members
            (id, name, birth_date, wedding_date, death_date, spouse_id,
             relationship, biography, occupation, location, profile_image, user_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		m.ID,
		m.Name,
		m.BirthDate,
		m.WeddingDate,
		m.DeathDate,
		m.SpouseID,
		m.Relationship,
		m.Biography,
		m.Occupation,
		m.Location,
		m.ProfileImage,
		m.UserID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert family member",
			zap.Error(err),
			zap.String("name", m.Name),
		)
		return "", err
	}
	r.logger.Info("Family member inserted successfully", zap.String("member_id", m.ID))
	return m.ID, nil
}

// Update replaces all scalar attributes of the member. Relationship edges are
// managed separately via DeleteEdgesFor/InsertEdges.
func (r *MemberRepository) Update(ctx context.Context, m *model.FamilyMember) error {
	r.logger.Debug("Updating family member", zap.String("member_id", m.ID))
	query := `
        UPDATE family_members
        SET name = $2, birth_date = $3, wedding_date = $4, death_date = $5,
            spouse_id = $6, relationship = $7, biography = $8, occupation = $9,
            location = $10, profile_image = $11, user_id = $12, updated_at = NOW()
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query,
		m.ID,
		m.Name,
		m.BirthDate,
		m.WeddingDate,
		m.DeathDate,
		m.SpouseID,
		m.Relationship,
		m.Biography,
		m.Occupation,
		m.Location,
		m.ProfileImage,
		m.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to update family member",
			zap.Error(err),
			zap.String("member_id", m.ID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Family member updated successfully", zap.String("member_id", m.ID))
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	r.logger.Debug("Deleting family member row", zap.String("member_id", id))
	result, err := r.db.Exec(ctx, `DELETE FROM family_members WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete family member",
			zap.Error(err),
			zap.String("member_id", id),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Family member deleted successfully", zap.String("member_id", id))
	return nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (*model.FamilyMember, error) {
	query := `SELECT ` + memberColumns + ` FROM family_members WHERE id = $1`
	var m model.FamilyMember
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.BirthDate,
		&m.WeddingDate,
		&m.DeathDate,
		&m.SpouseID,
		&m.Relationship,
		&m.Biography,
		&m.Occupation,
		&m.Location,
		&m.ProfileImage,
		&m.UserID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		r.logger.Error("Failed to query family member",
			zap.Error(err),
			zap.String("member_id", id),
		)
		return nil, err
	}

	if err := r.hydrateEdges(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns every member ordered by name, with parent/child edges hydrated
// from a single join-table scan.
func (r *MemberRepository) List(ctx context.Context) ([]model.FamilyMember, error) {
	r.logger.Debug("Listing family members")
	query := `SELECT ` + memberColumns + ` FROM family_members ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query family members", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	members := []model.FamilyMember{}
	index := map[string]int{}
	for rows.Next() {
		var m model.FamilyMember
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.BirthDate,
			&m.WeddingDate,
			&m.DeathDate,
			&m.SpouseID,
			&m.Relationship,
			&m.Biography,
			&m.Occupation,
			&m.Location,
			&m.ProfileImage,
			&m.UserID,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan family member row", zap.Error(err))
			return nil, err
		}
		m.Parents = []string{}
		m.Children = []string{}
		index[m.ID] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edges, err := r.allEdges(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if i, ok := index[e.ChildID]; ok {
			members[i].Parents = append(members[i].Parents, e.ParentID)
		}
		if i, ok := index[e.ParentID]; ok {
			members[i].Children = append(members[i].Children, e.ChildID)
		}
	}

	r.logger.Info("Family members listed successfully", zap.Int("count", len(members)))
	return members, nil
}

// InsertEdges adds parent->child rows, silently skipping duplicates.
func (r *MemberRepository) InsertEdges(ctx context.Context, edges []model.ParentChildEdge) error {
	if len(edges) == 0 {
		return nil
	}
	query := `
        INSERT INTO parent_child (parent_id, child_id)
        VALUES ($1, $2)
        ON CONFLICT (parent_id, child_id) DO NOTHING
    `
	for _, e := range edges {
		if _, err := r.db.Exec(ctx, query, e.ParentID, e.ChildID); err != nil {
			r.logger.Error("Failed to insert parent-child edge",
				zap.Error(err),
				zap.String("parent_id", e.ParentID),
				zap.String("child_id", e.ChildID),
			)
			return err
		}
	}
	return nil
}

// DeleteEdgesFor removes every parent_child row where the member appears on
// either side.
func (r *MemberRepository) DeleteEdgesFor(ctx context.Context, memberID string) error {
	query := `DELETE FROM parent_child WHERE parent_id = $1 OR child_id = $1`
	result, err := r.db.Exec(ctx, query, memberID)
	if err != nil {
		r.logger.Error("Failed to delete parent-child edges",
			zap.Error(err),
			zap.String("member_id", memberID),
		)
		return err
	}
	r.logger.Debug("Parent-child edges deleted",
		zap.String("member_id", memberID),
		zap.Int64("rows_affected", result.RowsAffected()),
	)
	return nil
}

// SetSpouse points one member's spouse pointer at spouseID (or clears it).
func (r *MemberRepository) SetSpouse(ctx context.Context, id string, spouseID *string) error {
	query := `UPDATE family_members SET spouse_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, spouseID); err != nil {
		r.logger.Error("Failed to set spouse pointer",
			zap.Error(err),
			zap.String("member_id", id),
		)
		return err
	}
	return nil
}

// ClearSpouseReferences nulls the spouse pointer on every member pointing at id.
func (r *MemberRepository) ClearSpouseReferences(ctx context.Context, memberID string) error {
	query := `UPDATE family_members SET spouse_id = NULL, updated_at = NOW() WHERE spouse_id = $1`
	result, err := r.db.Exec(ctx, query, memberID)
	if err != nil {
		r.logger.Error("Failed to clear spouse references",
			zap.Error(err),
			zap.String("member_id", memberID),
		)
		return err
	}
	r.logger.Debug("Spouse references cleared",
		zap.String("member_id", memberID),
		zap.Int64("rows_affected", result.RowsAffected()),
	)
	return nil
}

// MissingIDs returns the subset of ids with no matching member row.
func (r *MemberRepository) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM family_members WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to resolve member ids", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *MemberRepository) allEdges(ctx context.Context) ([]model.ParentChildEdge, error) {
	rows, err := r.db.Query(ctx, `SELECT parent_id, child_id FROM parent_child`)
	if err != nil {
		r.logger.Error("Failed to query parent-child edges", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var edges []model.ParentChildEdge
	for rows.Next() {
		var e model.ParentChildEdge
		if err := rows.Scan(&e.ParentID, &e.ChildID); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (r *MemberRepository) hydrateEdges(ctx context.Context, m *model.FamilyMember) error {
	m.Parents = []string{}
	m.Children = []string{}

	rows, err := r.db.Query(ctx,
		`SELECT parent_id, child_id FROM parent_child WHERE parent_id = $1 OR child_id = $1`,
		m.ID,
	)
	if err != nil {
		r.logger.Error("Failed to query member edges",
			zap.Error(err),
			zap.String("member_id", m.ID),
		)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var parentID, childID string
		if err := rows.Scan(&parentID, &childID); err != nil {
			return err
		}
		if childID == m.ID {
			m.Parents = append(m.Parents, parentID)
		}
		if parentID == m.ID {
			m.Children = append(m.Children, childID)
		}
	}
	return rows.Err()
}
