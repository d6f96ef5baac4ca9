package models

import (
	"strings"
	"time"
)

// AvailableSlot is a standing availability window declared by a teacher.
// Slots are replaced wholesale whenever the teacher edits their schedule.
type AvailableSlot struct {
	ID             int64     `db:"id" json:"id"`
	TeacherID      int       `db:"teacher_id" json:"teacher_id"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	EndTime        time.Time `db:"end_time" json:"end_time"`
	RecurrenceRule *string   `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Rule returns the trimmed recurrence rule or an empty string.
func (s AvailableSlot) Rule() string {
	if s.RecurrenceRule == nil {
		return ""
	}
	return strings.TrimSpace(*s.RecurrenceRule)
}

// HasRecurrence reports whether the slot carries a recurrence rule.
func (s AvailableSlot) HasRecurrence() bool {
	return s.Rule() != ""
}

// Duration is the fixed length of every occurrence.
func (s AvailableSlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Hours returns the number of whole hours covered by one occurrence.
func (s AvailableSlot) Hours() int {
	d := s.Duration()
	if d <= 0 {
		return 0
	}
	return int(d / time.Hour)
}

// SlotFilter narrows slot queries.
type SlotFilter struct {
	TeacherID     *int
	RecurringOnly bool
}
