package models

import "time"

// Vacation marks a calendar day on which a teacher takes no lessons.
type Vacation struct {
	ID        string    `db:"id" json:"id"`
	TeacherID int       `db:"teacher_id" json:"teacher_id"`
	Date      time.Time `db:"date" json:"date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
