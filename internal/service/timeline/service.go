package timeline

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/errs"
)

// EntryStore is the full timeline store surface used by the service.
type EntryStore interface {
	EntryWriter
	Insert(ctx context.Context, t *model.TimelineEntry) (string, error)
	GetByID(ctx context.Context, id string) (*model.TimelineEntry, error)
	Update(ctx context.Context, t *model.TimelineEntry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f model.TimelineFilter) ([]model.TimelineEntry, error)
	SetRelatedMembers(ctx context.Context, entryID string, memberIDs []string) error
}

// MemberSource supplies members for virtual-entry computation and id checks.
type MemberSource interface {
	List(ctx context.Context) ([]model.FamilyMember, error)
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

// Service owns user-authored timeline entries and produces the merged
// stored+computed listing.
type Service struct {
	entries EntryStore
	members MemberSource
	sweeper *Sweeper
	cache   *Cache
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(entries EntryStore, members MemberSource, sweeper *Sweeper, cache *Cache, logger *zap.Logger) *Service {
	return &Service{
		entries: entries,
		members: members,
		sweeper: sweeper,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// List runs the auto-promotion sweep, then merges persisted entries with
// entries computed from member date fields, sorted by date descending.
func (s *Service) List(ctx context.Context, f model.TimelineFilter) ([]model.TimelineEntry, error) {
	if cached, ok := s.cache.Get(ctx, f); ok {
		return cached, nil
	}

	if err := s.sweeper.Sweep(ctx, s.now()); err != nil {
		return nil, err
	}

	stored, err := s.entries.List(ctx, f)
	if err != nil {
		return nil, err
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, err
	}

	merged := make([]model.TimelineEntry, 0, len(stored))
	merged = append(merged, stored...)
	for _, v := range ComputeVirtual(members) {
		if MatchesFilter(v, f) {
			merged = append(merged, v)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Date.After(merged[j].Date)
		}
		return merged[i].ID < merged[j].ID
	})

	s.cache.Set(ctx, f, merged)
	return merged, nil
}

type CreateEntryInput struct {
	Title          string
	Description    string
	Date           time.Time
	Type           string
	FamilyMemberID *string
	RelatedMembers []string
}

// Create stores a user-authored timeline entry.
func (s *Service) Create(ctx context.Context, in CreateEntryInput) (*model.TimelineEntry, error) {
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
	} else if !model.ValidTimelineType(in.Type) {
		v.Add("type", "unknown timeline type")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	refs := append([]string{}, in.RelatedMembers...)
	if in.FamilyMemberID != nil {
		refs = append(refs, *in.FamilyMemberID)
	}
	missing, err := s.members.MissingIDs(ctx, refs)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, errs.Validation("related_members", "unknown family member ids: "+joinIDs(missing))
	}

	entry := &model.TimelineEntry{
		Title:          in.Title,
		Description:    in.Description,
		Date:           in.Date,
		Type:           in.Type,
		FamilyMemberID: in.FamilyMemberID,
		RelatedMembers: in.RelatedMembers,
		IsAutoAdded:    false,
	}
	if entry.RelatedMembers == nil {
		entry.RelatedMembers = []string{}
	}

	if _, err := s.entries.Insert(ctx, entry); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("Timeline entry created", zap.String("entry_id", entry.ID))
	return entry, nil
}

type UpdateEntryInput struct {
	Title          *string
	Description    *string
	Date           *time.Time
	Type           *string
	FamilyMemberID *string
	ClearMember    bool
	RelatedMembers *[]string
}

// Update applies a partial patch to a persisted entry.
func (s *Service) Update(ctx context.Context, id string, in UpdateEntryInput) (*model.TimelineEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	if in.Title != nil {
		entry.Title = *in.Title
	}
	if in.Description != nil {
		entry.Description = *in.Description
	}
	if in.Date != nil {
		entry.Date = *in.Date
	}
	if in.Type != nil {
		if !model.ValidTimelineType(*in.Type) {
			return nil, errs.Validation("type", "unknown timeline type")
		}
		entry.Type = *in.Type
	}
	if in.ClearMember {
		entry.FamilyMemberID = nil
	} else if in.FamilyMemberID != nil {
		entry.FamilyMemberID = in.FamilyMemberID
	}

	refs := []string{}
	if entry.FamilyMemberID != nil {
		refs = append(refs, *entry.FamilyMemberID)
	}
	if in.RelatedMembers != nil {
		refs = append(refs, *in.RelatedMembers...)
	}
	missing, err := s.members.MissingIDs(ctx, refs)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, errs.Validation("related_members", "unknown family member ids: "+joinIDs(missing))
	}

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}
	if in.RelatedMembers != nil {
		if err := s.entries.SetRelatedMembers(ctx, entry.ID, *in.RelatedMembers); err != nil {
			return nil, err
		}
		entry.RelatedMembers = *in.RelatedMembers
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("Timeline entry updated", zap.String("entry_id", entry.ID))
	return entry, nil
}

// Delete removes a persisted entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Get returns one persisted entry.
func (s *Service) Get(ctx context.Context, id string) (*model.TimelineEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}
