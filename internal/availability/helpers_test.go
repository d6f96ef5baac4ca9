package availability

import (
	"time"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func oneOffSlot(teacherID int, start time.Time, hours int) models.AvailableSlot {
	return models.AvailableSlot{
		TeacherID: teacherID,
		StartTime: start,
		EndTime:   start.Add(time.Duration(hours) * time.Hour),
	}
}

func weeklySlot(teacherID int, start time.Time, hours int, rule string) models.AvailableSlot {
	slot := oneOffSlot(teacherID, start, hours)
	slot.RecurrenceRule = strPtr(rule)
	return slot
}
