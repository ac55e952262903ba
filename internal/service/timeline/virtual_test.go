package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytree/internal/model"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestComputeVirtual_OneEntryPerPopulatedDate(t *testing.T) {
	members := []model.FamilyMember{
		{
			ID:          "m1",
			Name:        "Edith Hale",
			BirthDate:   datePtr(1941, 2, 11),
			WeddingDate: datePtr(1963, 6, 20),
			DeathDate:   datePtr(2019, 11, 3),
		},
		{
			ID:        "m2",
			Name:      "June Hale",
			BirthDate: datePtr(1965, 4, 2),
		},
		{
			ID:   "m3",
			Name: "Unknown Cousin",
		},
	}

	entries := ComputeVirtual(members)
	require.Len(t, entries, 4)

	byID := map[string]model.TimelineEntry{}
	for _, e := range entries {
		byID[e.ID] = e
	}

	birth, ok := byID["birth-m1"]
	require.True(t, ok)
	assert.Equal(t, "Birth of Edith Hale", birth.Title)
	assert.Equal(t, model.TimelineTypeBirth, birth.Type)
	assert.True(t, birth.IsComputed)
	require.NotNil(t, birth.FamilyMemberID)
	assert.Equal(t, "m1", *birth.FamilyMemberID)

	wedding := byID["wedding-m1"]
	assert.Equal(t, "Marriage of Edith Hale", wedding.Title)
	assert.Equal(t, model.TimelineTypeMarriage, wedding.Type)

	death := byID["death-m1"]
	assert.Equal(t, "Death of Edith Hale", death.Title)
	assert.Equal(t, model.TimelineTypeDeath, death.Type)

	_, ok = byID["birth-m2"]
	assert.True(t, ok)
}

func TestComputeVirtual_NoDatesNoEntries(t *testing.T) {
	entries := ComputeVirtual([]model.FamilyMember{{ID: "m1", Name: "Nameless"}})
	assert.Empty(t, entries)
}

func TestMatchesFilter(t *testing.T) {
	m1 := "m1"
	entry := model.TimelineEntry{
		ID:             "birth-m1",
		Date:           time.Date(1941, 2, 11, 0, 0, 0, 0, time.UTC),
		Type:           model.TimelineTypeBirth,
		FamilyMemberID: &m1,
		IsComputed:     true,
	}

	assert.True(t, MatchesFilter(entry, model.TimelineFilter{}))
	assert.True(t, MatchesFilter(entry, model.TimelineFilter{Type: model.TimelineTypeBirth}))
	assert.False(t, MatchesFilter(entry, model.TimelineFilter{Type: model.TimelineTypeDeath}))
	assert.True(t, MatchesFilter(entry, model.TimelineFilter{FamilyMemberID: "m1"}))
	assert.False(t, MatchesFilter(entry, model.TimelineFilter{FamilyMemberID: "m2"}))
	assert.False(t, MatchesFilter(entry, model.TimelineFilter{From: datePtr(1950, 1, 1)}))
	assert.True(t, MatchesFilter(entry, model.TimelineFilter{To: datePtr(1950, 1, 1)}))
}
