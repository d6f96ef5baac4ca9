package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// StudentRepository reads student-side booking context: the assigned
// teacher and the language sets used for matching.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// AssignedTeacher returns the student's teacher, or nil when none is assigned.
func (r *StudentRepository) AssignedTeacher(ctx context.Context, studentID int) (*int, error) {
	var teacherID int
	err := r.db.GetContext(ctx, &teacherID, `SELECT teacher_id FROM student_teachers WHERE student_id = $1`, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assigned teacher: %w", err)
	}
	return &teacherID, nil
}

// AssignTeacher attaches a teacher to a student that has none. It reports
// false when an assignment already existed.
func (r *StudentRepository) AssignTeacher(ctx context.Context, exec sqlx.ExtContext, studentID, teacherID int) (bool, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO student_teachers (student_id, teacher_id, assigned_at) VALUES ($1, $2, $3)
		ON CONFLICT (student_id) DO NOTHING`
	res, err := exec.ExecContext(ctx, query, studentID, teacherID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("assign teacher: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign teacher rows: %w", err)
	}
	return affected > 0, nil
}

// StudentLanguages returns the languages a student wants to learn.
func (r *StudentRepository) StudentLanguages(ctx context.Context, studentID int) ([]int, error) {
	var ids []int
	if err := r.db.SelectContext(ctx, &ids, `SELECT language_id FROM student_languages WHERE student_id = $1 ORDER BY language_id`, studentID); err != nil {
		return nil, fmt.Errorf("list student languages: %w", err)
	}
	return ids, nil
}

// TeacherLanguages returns the languages taught by each of teacherIDs.
// Teachers without languages are absent from the map.
func (r *StudentRepository) TeacherLanguages(ctx context.Context, teacherIDs []int) (map[int][]int, error) {
	result := make(map[int][]int, len(teacherIDs))
	if len(teacherIDs) == 0 {
		return result, nil
	}
	ids := make([]int64, len(teacherIDs))
	for i, id := range teacherIDs {
		ids[i] = int64(id)
	}

	var rows []struct {
		TeacherID  int `db:"teacher_id"`
		LanguageID int `db:"language_id"`
	}
	const query = `SELECT teacher_id, language_id FROM teacher_languages WHERE teacher_id = ANY($1) ORDER BY teacher_id, language_id`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list teacher languages: %w", err)
	}
	for _, row := range rows {
		result[row.TeacherID] = append(result[row.TeacherID], row.LanguageID)
	}
	return result, nil
}
