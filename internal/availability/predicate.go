package availability

import (
	"time"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// Candidate carries everything a predicate may look at for one
// (slot, instant) pair. Collections are shared read-only snapshots.
type Candidate struct {
	Slot    *models.AvailableSlot
	Instant time.Time
	Now     time.Time

	Bookings  []models.BookedClass
	Vacations []models.Vacation

	AssignedTeacherID *int
	SelectedTeachers  TeacherSet

	StudentLanguages []int
	TeacherLanguages map[int][]int

	Recurring bool

	compiled *compiledSlot
}

func (c *Candidate) slotRule() *compiledSlot {
	if c.compiled == nil {
		c.compiled = compile(c.Slot)
	}
	return c.compiled
}

// Predicate decides one availability rule for a candidate.
type Predicate func(c *Candidate) bool

// Direction selects which side of "now" WithinWindow accepts.
type Direction string

const (
	DirectionAfter  Direction = "after"
	DirectionBefore Direction = "before"
)

// SlotCoversInstant accepts instants inside the slot's [start, end) window,
// or inside the latest recurrence occurrence at or before the instant.
// Missing slot or instant, and unparseable rules, reject.
func SlotCoversInstant(c *Candidate) bool {
	if c.Slot == nil || c.Instant.IsZero() {
		return false
	}
	instant := c.Instant.UTC()
	if !c.Slot.HasRecurrence() {
		return !instant.Before(c.Slot.StartTime) && instant.Before(c.Slot.EndTime)
	}
	compiled := c.slotRule()
	if compiled.err != nil {
		return false
	}
	occ, ok := compiled.lastOccurrence(instant)
	if !ok {
		return false
	}
	return !instant.Before(occ) && instant.Before(occ.Add(c.Slot.Duration()))
}

// NotBooked rejects instants already taken by a booking of the slot's
// teacher. Without a slot or instant there is nothing to collide with.
func NotBooked(c *Candidate) bool {
	if c.Slot == nil || c.Instant.IsZero() {
		return true
	}
	weekday := c.Instant.UTC().Weekday()
	for _, booking := range c.Bookings {
		if booking.TeacherID != c.Slot.TeacherID {
			continue
		}
		if booking.Recurring {
			// Recurring bookings match on weekday alone; hour and first date are not compared.
			// TODO: also require the same hour and Instant >= booking.Date once product confirms the rule.
			if booking.Date.UTC().Weekday() == weekday {
				return false
			}
			continue
		}
		if booking.Date.Equal(c.Instant) {
			return false
		}
	}
	return true
}

// AssignedTeacherOnly restricts a student with an assigned teacher to that
// teacher's slots.
func AssignedTeacherOnly(c *Candidate) bool {
	if c.AssignedTeacherID == nil {
		return true
	}
	if c.Slot == nil {
		return false
	}
	return c.Slot.TeacherID == *c.AssignedTeacherID
}

// SelectedTeachersOnly restricts to teachers narrowed by earlier selections.
// An empty set places no restriction.
func SelectedTeachersOnly(c *Candidate) bool {
	if len(c.SelectedTeachers) == 0 {
		return true
	}
	if c.Slot == nil {
		return false
	}
	return c.SelectedTeachers.Has(c.Slot.TeacherID)
}

// NotOnVacation rejects instants on a calendar day the teacher is away.
func NotOnVacation(c *Candidate) bool {
	if c.Slot == nil || c.Instant.IsZero() {
		return true
	}
	for _, vacation := range c.Vacations {
		if vacation.TeacherID == c.Slot.TeacherID && sameDay(vacation.Date, c.Instant) {
			return false
		}
	}
	return true
}

// WithinWindow accepts instants at or after now+offset (DirectionAfter) or at
// or before now-offset (DirectionBefore). A missing instant rejects.
func WithinWindow(offset time.Duration, direction Direction) Predicate {
	return func(c *Candidate) bool {
		if c.Instant.IsZero() {
			return false
		}
		now := c.Now
		if now.IsZero() {
			now = time.Now()
		}
		if direction == DirectionBefore {
			return !c.Instant.After(now.Add(-offset))
		}
		return !c.Instant.Before(now.Add(offset))
	}
}

// RecurrenceShape rejects slots without a rule in recurring mode and slots
// whose rule does not parse in either mode.
func RecurrenceShape(c *Candidate) bool {
	if c.Slot == nil {
		return false
	}
	if !c.Slot.HasRecurrence() {
		return !c.Recurring
	}
	return c.slotRule().err == nil
}

// LanguageMatch accepts teachers sharing at least one language with the
// student. Unknown or empty language data on either side rejects.
func LanguageMatch(c *Candidate) bool {
	if c.Slot == nil {
		return false
	}
	teacherLanguages := c.TeacherLanguages[c.Slot.TeacherID]
	if len(teacherLanguages) == 0 || len(c.StudentLanguages) == 0 {
		return false
	}
	wanted := make(map[int]struct{}, len(c.StudentLanguages))
	for _, id := range c.StudentLanguages {
		wanted[id] = struct{}{}
	}
	for _, id := range teacherLanguages {
		if _, ok := wanted[id]; ok {
			return true
		}
	}
	return false
}
