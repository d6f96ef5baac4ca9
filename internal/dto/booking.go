package dto

import "github.com/noah-isme/lesson-booking-api/internal/models"

// BookingRequest books every listed instant with one teacher.
type BookingRequest struct {
	Instants  []int64 `json:"instants" validate:"required,min=1,max=56,dive,gt=0"`
	Recurring bool    `json:"recurring"`
}

// BookingResponse reports the chosen teacher and the stored classes.
type BookingResponse struct {
	TeacherID     int                  `json:"teacherId"`
	NewAssignment bool                 `json:"newAssignment"`
	Classes       []models.BookedClass `json:"classes"`
}

// SkippedEvent explains why an imported calendar event was not stored.
type SkippedEvent struct {
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// SlotImportResponse summarises an iCalendar import.
type SlotImportResponse struct {
	TeacherID int                    `json:"teacherId"`
	Slots     []models.AvailableSlot `json:"slots"`
	Skipped   []SkippedEvent         `json:"skipped"`
}
