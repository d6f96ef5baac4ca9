package availability

import (
	"math/rand"
	"time"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// Restriction is the outcome of teacher intersection. The zero value places
// no restriction; a restriction with no teachers means the selection cannot
// be booked with any single teacher.
type Restriction struct {
	restricted bool
	teachers   TeacherSet
}

// Unrestricted returns the "no restriction" marker.
func Unrestricted() Restriction {
	return Restriction{}
}

// RestrictTo limits candidates to teachers.
func RestrictTo(teachers TeacherSet) Restriction {
	if teachers == nil {
		teachers = make(TeacherSet)
	}
	return Restriction{restricted: true, teachers: teachers.Clone()}
}

// Restricted reports whether a selection narrowed the candidates.
func (r Restriction) Restricted() bool {
	return r.restricted
}

// Impossible reports a selection no single teacher can cover.
func (r Restriction) Impossible() bool {
	return r.restricted && len(r.teachers) == 0
}

// Teachers returns the qualifying teachers, nil when unrestricted.
func (r Restriction) Teachers() TeacherSet {
	if !r.restricted {
		return nil
	}
	return r.teachers.Clone()
}

// Allows reports whether teacherID passes the restriction.
func (r Restriction) Allows(teacherID int) bool {
	return !r.restricted || r.teachers.Has(teacherID)
}

// ResolveQualifyingTeachers returns the teachers whose slots cover every
// selected instant, judged by SlotCoversInstant alone. As soon as one instant
// is covered by nobody the result is the empty restriction.
func ResolveQualifyingTeachers(selected []time.Time, slots []models.AvailableSlot) Restriction {
	if len(selected) == 0 {
		return Unrestricted()
	}

	byTeacher := make(map[int][]*Candidate)
	for i := range slots {
		slot := &slots[i]
		byTeacher[slot.TeacherID] = append(byTeacher[slot.TeacherID], &Candidate{
			Slot:     slot,
			compiled: compile(slot),
		})
	}

	qualifying := make(TeacherSet, len(byTeacher))
	for teacherID := range byTeacher {
		qualifying.Add(teacherID)
	}

	for _, instant := range selected {
		covering := make(TeacherSet)
		for teacherID := range qualifying {
			for _, candidate := range byTeacher[teacherID] {
				candidate.Instant = instant
				if SlotCoversInstant(candidate) {
					covering.Add(teacherID)
					break
				}
			}
		}
		if len(covering) == 0 {
			return RestrictTo(nil)
		}
		qualifying = covering
	}
	return RestrictTo(qualifying)
}

// ResolveQualifyingCells materialises cells inside w and resolves them. A
// cell with no instant inside the window cannot be covered.
func ResolveQualifyingCells(cells []Cell, w Window, slots []models.AvailableSlot) Restriction {
	if len(cells) == 0 {
		return Unrestricted()
	}
	instants := make([]time.Time, 0, len(cells))
	for _, cell := range cells {
		instant, ok := w.Instant(cell)
		if !ok {
			return RestrictTo(nil)
		}
		instants = append(instants, instant)
	}
	return ResolveQualifyingTeachers(instants, slots)
}

// PickTeacher chooses uniformly at random among candidates. A nil rng uses
// the package-level source.
func PickTeacher(candidates TeacherSet, rng *rand.Rand) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	ids := candidates.IDs()
	var idx int
	if rng != nil {
		idx = rng.Intn(len(ids))
	} else {
		idx = rand.Intn(len(ids))
	}
	return ids[idx], true
}
