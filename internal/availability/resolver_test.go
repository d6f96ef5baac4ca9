package availability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

func TestResolveEmptySelectionIsUnrestricted(t *testing.T) {
	restriction := ResolveQualifyingTeachers(nil, []models.AvailableSlot{oneOffSlot(101, at(monday, 8), 1)})

	assert.False(t, restriction.Restricted())
	assert.False(t, restriction.Impossible())
	assert.Nil(t, restriction.Teachers())
	assert.True(t, restriction.Allows(999))
}

func TestResolveSingleCellPicksCoveringTeacher(t *testing.T) {
	slots := []models.AvailableSlot{
		oneOffSlot(101, at(monday.AddDate(0, 0, 1), 9), 2),
		weeklySlot(202, at(monday, 8), 3, "FREQ=WEEKLY;BYDAY=MO"),
	}
	window := dayWindow(t, monday.AddDate(0, 0, 7), monday.AddDate(0, 0, 13))

	restriction := ResolveQualifyingCells([]Cell{{Weekday: int(time.Monday), Hour: 9}}, window, slots)

	require.True(t, restriction.Restricted())
	assert.Equal(t, []int{202}, restriction.Teachers().IDs())
}

func TestResolveUncoverableCombinationIsEmpty(t *testing.T) {
	slots := []models.AvailableSlot{
		oneOffSlot(101, at(monday, 8), 1),
		oneOffSlot(202, at(monday, 9), 1),
	}

	restriction := ResolveQualifyingTeachers([]time.Time{at(monday, 8), at(monday, 9)}, slots)

	assert.True(t, restriction.Restricted())
	assert.True(t, restriction.Impossible())
	assert.Empty(t, restriction.Teachers())
}

func TestResolveShortCircuitsOnUncoveredInstant(t *testing.T) {
	slots := []models.AvailableSlot{
		weeklySlot(101, at(monday, 8), 10, "FREQ=DAILY"),
		weeklySlot(202, at(monday, 8), 10, "FREQ=DAILY"),
	}
	selected := []time.Time{at(monday, 8), at(monday, 3), at(monday, 9)}

	restriction := ResolveQualifyingTeachers(selected, slots)

	assert.True(t, restriction.Impossible())
}

func TestResolveResultIsSubsetOfInputTeachers(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		var slots []models.AvailableSlot
		present := NewTeacherSet()
		for i := 0; i < 5; i++ {
			teacherID := 100 + rng.Intn(4)
			present.Add(teacherID)
			start := at(monday.AddDate(0, 0, rng.Intn(7)), rng.Intn(20))
			slots = append(slots, weeklySlot(teacherID, start, 1+rng.Intn(4), "FREQ=WEEKLY"))
		}
		selected := []time.Time{at(monday.AddDate(0, 0, 7+rng.Intn(7)), rng.Intn(24))}

		restriction := ResolveQualifyingTeachers(selected, slots)

		require.True(t, restriction.Restricted())
		for id := range restriction.Teachers() {
			assert.True(t, present.Has(id))
		}
	}
}

func TestResolveUsesCoverageOnly(t *testing.T) {
	slots := []models.AvailableSlot{oneOffSlot(101, at(monday, 8), 2)}

	restriction := ResolveQualifyingTeachers([]time.Time{at(monday, 8), at(monday, 9)}, slots)

	assert.Equal(t, []int{101}, restriction.Teachers().IDs())
}

func TestPickTeacherAlwaysReturnsMember(t *testing.T) {
	candidates := NewTeacherSet(101, 202, 303)
	seen := NewTeacherSet()
	for seed := int64(0); seed < 200; seed++ {
		id, ok := PickTeacher(candidates, rand.New(rand.NewSource(seed)))
		require.True(t, ok)
		assert.True(t, candidates.Has(id))
		seen.Add(id)
	}
	assert.Equal(t, 3, seen.Len())
}

func TestPickTeacherEmptySet(t *testing.T) {
	_, ok := PickTeacher(NewTeacherSet(), nil)
	assert.False(t, ok)
}
