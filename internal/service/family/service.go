package family

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/errs"
	"familytree/pkg/mq"
)

// Store is the member persistence surface the service drives. Edge and spouse
// operations are split into primitives so the service controls write order.
type Store interface {
	Insert(ctx context.Context, m *model.FamilyMember) (string, error)
	Update(ctx context.Context, m *model.FamilyMember) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.FamilyMember, error)
	List(ctx context.Context) ([]model.FamilyMember, error)
	InsertEdges(ctx context.Context, edges []model.ParentChildEdge) error
	DeleteEdgesFor(ctx context.Context, memberID string) error
	SetSpouse(ctx context.Context, id string, spouseID *string) error
	ClearSpouseReferences(ctx context.Context, memberID string) error
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

// Publisher sends domain events to the message bus.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Invalidator drops cached timeline listings after graph mutations.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service owns the family graph: member rows, parent/child edges and the
// symmetric spouse pointer.
type Service struct {
	members   Store
	publisher Publisher
	cache     Invalidator
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(members Store, publisher Publisher, cache Invalidator, logger *zap.Logger) *Service {
	return &Service{
		members:   members,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// MemberInput carries the full desired state of a member, relationship sets
// included. Updates replace the edge sets wholesale: an omitted or partial
// parents/children list severs the missing relationships.
type MemberInput struct {
	Name         string
	BirthDate    *time.Time
	WeddingDate  *time.Time
	DeathDate    *time.Time
	SpouseID     *string
	Relationship string
	Biography    string
	Occupation   string
	Location     string
	ProfileImage string
	UserID       *string
	Parents      []string
	Children     []string
}

func (s *Service) validate(ctx context.Context, id string, in MemberInput) error {
	v := &errs.ValidationError{}

	if in.Name == "" {
		v.Add("name", "name is required")
	}
	if in.BirthDate != nil && in.BirthDate.After(s.now()) {
		v.Add("birth_date", "birth date cannot be in the future")
	}
	if in.BirthDate != nil && in.DeathDate != nil && in.DeathDate.Before(*in.BirthDate) {
		v.Add("death_date", "death date cannot precede birth date")
	}
	if id != "" {
		if in.SpouseID != nil && *in.SpouseID == id {
			v.Add("spouse_id", "a member cannot be their own spouse")
		}
		for _, p := range in.Parents {
			if p == id {
				v.Add("parents", "a member cannot be their own parent")
				break
			}
		}
		for _, c := range in.Children {
			if c == id {
				v.Add("children", "a member cannot be their own child")
				break
			}
		}
	}
	if err := v.Err(); err != nil {
		return err
	}

	// Batch-resolve every referenced member; reject the whole write when any
	// id is unknown.
	refs := append([]string{}, in.Parents...)
	refs = append(refs, in.Children...)
	if in.SpouseID != nil {
		refs = append(refs, *in.SpouseID)
	}
	missing, err := s.members.MissingIDs(ctx, refs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		missingSet := map[string]bool{}
		for _, id := range missing {
			missingSet[id] = true
		}
		for _, p := range in.Parents {
			if missingSet[p] {
				v.Add("parents", "unknown family member id: "+p)
			}
		}
		for _, c := range in.Children {
			if missingSet[c] {
				v.Add("children", "unknown family member id: "+c)
			}
		}
		if in.SpouseID != nil && missingSet[*in.SpouseID] {
			v.Add("spouse_id", "unknown family member id: "+*in.SpouseID)
		}
	}
	return v.Err()
}

// Create validates and persists a new member with its edges.
func (s *Service) Create(ctx context.Context, in MemberInput) (*model.FamilyMember, error) {
	if err := s.validate(ctx, "", in); err != nil {
		return nil, err
	}

	m := &model.FamilyMember{
		Name:         in.Name,
		BirthDate:    in.BirthDate,
		WeddingDate:  in.WeddingDate,
		DeathDate:    in.DeathDate,
		SpouseID:     in.SpouseID,
		Relationship: in.Relationship,
		Biography:    in.Biography,
		Occupation:   in.Occupation,
		Location:     in.Location,
		ProfileImage: in.ProfileImage,
		UserID:       in.UserID,
		Parents:      dedupe(in.Parents),
		Children:     dedupe(in.Children),
	}

	id, err := s.members.Insert(ctx, m)
	if err != nil {
		return nil, err
	}

	if err := s.members.InsertEdges(ctx, buildEdges(id, m.Parents, m.Children)); err != nil {
		return nil, err
	}

	if in.SpouseID != nil {
		if err := s.syncSpouse(ctx, id, nil, in.SpouseID); err != nil {
			return nil, err
		}
	}

	s.cache.Invalidate(ctx)
	if s.publisher != nil {
		payload := mq.MemberPayload{MemberID: id, Name: m.Name}
		if err := s.publisher.Publish(mq.RoutingMemberCreated, payload); err != nil {
			s.logger.Warn("Failed to publish member.created", zap.Error(err))
		}
	}

	s.logger.Info("Family member created", zap.String("member_id", id))
	return m, nil
}

// Update replaces the member's scalar attributes and rebuilds its edges from
// the supplied lists (delete-then-recreate). Callers must always send the
// complete desired edge set, not a delta.
func (s *Service) Update(ctx context.Context, id string, in MemberInput) (*model.FamilyMember, error) {
	existing, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	if err := s.validate(ctx, id, in); err != nil {
		return nil, err
	}

	m := &model.FamilyMember{
		ID:           id,
		Name:         in.Name,
		BirthDate:    in.BirthDate,
		WeddingDate:  in.WeddingDate,
		DeathDate:    in.DeathDate,
		SpouseID:     in.SpouseID,
		Relationship: in.Relationship,
		Biography:    in.Biography,
		Occupation:   in.Occupation,
		Location:     in.Location,
		ProfileImage: in.ProfileImage,
		UserID:       in.UserID,
		Parents:      dedupe(in.Parents),
		Children:     dedupe(in.Children),
	}

	if err := s.members.Update(ctx, m); err != nil {
		return nil, err
	}

	if err := s.members.DeleteEdgesFor(ctx, id); err != nil {
		return nil, err
	}
	if err := s.members.InsertEdges(ctx, buildEdges(id, m.Parents, m.Children)); err != nil {
		return nil, err
	}

	if err := s.syncSpouse(ctx, id, existing.SpouseID, in.SpouseID); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("Family member updated", zap.String("member_id", id))
	return m, nil
}

// Delete scrubs every reference to the member before removing the row: edges
// first, then spouse pointers, then the member itself. A dangling reference
// left behind would corrupt the graph.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	if err := s.members.DeleteEdgesFor(ctx, id); err != nil {
		return err
	}
	if err := s.members.ClearSpouseReferences(ctx, id); err != nil {
		return err
	}
	if err := s.members.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	s.cache.Invalidate(ctx)
	if s.publisher != nil {
		payload := mq.MemberPayload{MemberID: id, Name: existing.Name}
		if err := s.publisher.Publish(mq.RoutingMemberDeleted, payload); err != nil {
			s.logger.Warn("Failed to publish member.deleted", zap.Error(err))
		}
	}

	s.logger.Info("Family member deleted", zap.String("member_id", id))
	return nil
}

// Get returns one member with hydrated edges.
func (s *Service) Get(ctx context.Context, id string) (*model.FamilyMember, error) {
	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List returns all members ordered by name.
func (s *Service) List(ctx context.Context) ([]model.FamilyMember, error) {
	return s.members.List(ctx)
}

// syncSpouse keeps the spouse pointer symmetric: the old spouse is widowed,
// anyone previously married to the new spouse is detached, and the new
// spouse points back.
func (s *Service) syncSpouse(ctx context.Context, id string, oldSpouse, newSpouse *string) error {
	if equalPtr(oldSpouse, newSpouse) {
		return nil
	}
	if oldSpouse != nil {
		if err := s.members.SetSpouse(ctx, *oldSpouse, nil); err != nil {
			return err
		}
	}
	if newSpouse != nil {
		// Detach anyone currently pointing at the new spouse. This also nulls
		// the caller's freshly written pointer, so reassert it afterwards.
		if err := s.members.ClearSpouseReferences(ctx, *newSpouse); err != nil {
			return err
		}
		if err := s.members.SetSpouse(ctx, id, newSpouse); err != nil {
			return err
		}
		if err := s.members.SetSpouse(ctx, *newSpouse, &id); err != nil {
			return err
		}
	}
	return nil
}

func buildEdges(id string, parents, children []string) []model.ParentChildEdge {
	edges := make([]model.ParentChildEdge, 0, len(parents)+len(children))
	for _, p := range parents {
		edges = append(edges, model.ParentChildEdge{ParentID: p, ChildID: id})
	}
	for _, c := range children {
		edges = append(edges, model.ParentChildEdge{ParentID: id, ChildID: c})
	}
	return edges
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

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
