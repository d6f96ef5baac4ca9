package models

import "time"

// BookedClass is a lesson booked by a student with a teacher. For recurring
// bookings Date holds the first occurrence and the lesson repeats weekly.
type BookedClass struct {
	ID        string    `db:"id" json:"id"`
	TeacherID int       `db:"teacher_id" json:"teacher_id"`
	StudentID int       `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	Recurring bool      `db:"recurring" json:"recurring"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
