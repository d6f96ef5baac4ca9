package availability

import (
	"sort"
	"time"
)

// Cell is one bookable weekday/hour unit of the weekly grid. Weekday follows
// time.Weekday (0 = Sunday) and both fields are evaluated in UTC.
type Cell struct {
	Weekday int `json:"weekday"`
	Hour    int `json:"hour"`
}

// CellOf returns the cell an instant falls into.
func CellOf(t time.Time) Cell {
	t = t.UTC()
	return Cell{Weekday: int(t.Weekday()), Hour: t.Hour()}
}

// Valid reports whether the cell lies inside the 7x24 grid.
func (c Cell) Valid() bool {
	return c.Weekday >= 0 && c.Weekday <= 6 && c.Hour >= 0 && c.Hour <= 23
}

func sortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Weekday == cells[j].Weekday {
			return cells[i].Hour < cells[j].Hour
		}
		return cells[i].Weekday < cells[j].Weekday
	})
}

// TeacherSet is a set of teacher ids.
type TeacherSet map[int]struct{}

// NewTeacherSet builds a set from ids.
func NewTeacherSet(ids ...int) TeacherSet {
	set := make(TeacherSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Add inserts id.
func (s TeacherSet) Add(id int) {
	s[id] = struct{}{}
}

// Has reports membership. A nil set has no members.
func (s TeacherSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s TeacherSet) Len() int {
	return len(s)
}

// IDs returns the members in ascending order.
func (s TeacherSet) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Intersect returns the members present in both sets.
func (s TeacherSet) Intersect(other TeacherSet) TeacherSet {
	result := make(TeacherSet)
	for id := range s {
		if other.Has(id) {
			result[id] = struct{}{}
		}
	}
	return result
}

// Clone copies the set.
func (s TeacherSet) Clone() TeacherSet {
	result := make(TeacherSet, len(s))
	for id := range s {
		result[id] = struct{}{}
	}
	return result
}
