package timeline

import (
	"familytree/internal/model"
)

// ComputeVirtual synthesizes one entry per populated birth/wedding/death date
// across the given members. Virtual entries are never persisted; their ids
// ("birth-<memberID>" and friends) cannot collide with the uuid-keyed rows.
func ComputeVirtual(members []model.FamilyMember) []model.TimelineEntry {
	entries := []model.TimelineEntry{}
	for i := range members {
		m := members[i]
		memberID := m.ID

		if m.BirthDate != nil {
			entries = append(entries, model.TimelineEntry{
				ID:             "birth-" + m.ID,
				Title:          "Birth of " + m.Name,
				Date:           *m.BirthDate,
				Type:           model.TimelineTypeBirth,
				FamilyMemberID: &memberID,
				RelatedMembers: []string{},
				IsComputed:     true,
			})
		}
		if m.WeddingDate != nil {
			entries = append(entries, model.TimelineEntry{
				ID:             "wedding-" + m.ID,
				Title:          "Marriage of " + m.Name,
				Date:           *m.WeddingDate,
				Type:           model.TimelineTypeMarriage,
				FamilyMemberID: &memberID,
				RelatedMembers: []string{},
				IsComputed:     true,
			})
		}
		if m.DeathDate != nil {
			entries = append(entries, model.TimelineEntry{
				ID:             "death-" + m.ID,
				Title:          "Death of " + m.Name,
				Date:           *m.DeathDate,
				Type:           model.TimelineTypeDeath,
				FamilyMemberID: &memberID,
				RelatedMembers: []string{},
				IsComputed:     true,
			})
		}
	}
	return entries
}

// MatchesFilter applies the same listing constraints to a virtual entry that
// the store applies to persisted rows.
func MatchesFilter(e model.TimelineEntry, f model.TimelineFilter) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	if f.FamilyMemberID != "" {
		if e.FamilyMemberID == nil || *e.FamilyMemberID != f.FamilyMemberID {
			return false
		}
	}
	return true
}
