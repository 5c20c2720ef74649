package assignment_test

import (
	"testing"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligible_DeepCleanNorthside(t *testing.T) {
	both := cleaner.Cleaner{ID: uuid.New(), Active: true, Specializations: []string{"DEEP_CLEAN", "STANDARD"}, Areas: []string{"northside", "midtown"}}
	standardOnly := cleaner.Cleaner{ID: uuid.New(), Active: true, Specializations: []string{"STANDARD"}, Areas: []string{"northside", "midtown"}}

	got := assignment.Eligible([]cleaner.Cleaner{standardOnly, both}, []string{"DEEP_CLEAN"}, "northside")

	require.Len(t, got, 1)
	assert.Equal(t, both.ID, got[0].ID)
}

func TestEligible_Exclusions(t *testing.T) {
	tags := []string{"DEEP_CLEAN"}
	cleaners := []cleaner.Cleaner{
		{ID: uuid.New(), Active: false, Specializations: tags, Areas: []string{"northside"}},
		{ID: uuid.New(), Active: true, Specializations: tags},
		{ID: uuid.New(), Active: true, Specializations: tags, Areas: []string{"southside"}},
	}

	got := assignment.Eligible(cleaners, tags, "northside")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEligible_NoRequiredTagsMatchesNobody(t *testing.T) {
	c := cleaner.Cleaner{ID: uuid.New(), Active: true, Specializations: []string{"STANDARD"}, Areas: []string{"northside"}}
	assert.Empty(t, assignment.Eligible([]cleaner.Cleaner{c}, nil, "northside"))
}

func TestEligible_OrderedByID(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-0000-0000-000000000003"),
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("00000000-0000-0000-0000-000000000002"),
	}
	var cs []cleaner.Cleaner
	for _, id := range ids {
		cs = append(cs, cleaner.Cleaner{ID: id, Active: true, Specializations: []string{"STANDARD"}, Areas: []string{"midtown"}})
	}

	got := assignment.Eligible(cs, []string{"STANDARD"}, "midtown")
	require.Len(t, got, 3)
	assert.Equal(t, ids[1], got[0].ID)
	assert.Equal(t, ids[2], got[1].ID)
	assert.Equal(t, ids[0], got[2].ID)
}
