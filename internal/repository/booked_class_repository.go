package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// ErrDuplicateBooking is returned when the (teacher_id, date) unique index
// rejects an insert.
var ErrDuplicateBooking = errors.New("booking already exists for teacher and date")

const uniqueViolation = "23505"

// BookedClassRepository persists booked classes.
type BookedClassRepository struct {
	db *sqlx.DB
}

// NewBookedClassRepository constructs the repository.
func NewBookedClassRepository(db *sqlx.DB) *BookedClassRepository {
	return &BookedClassRepository{db: db}
}

// List returns booked classes, optionally for one teacher.
func (r *BookedClassRepository) List(ctx context.Context, teacherID *int) ([]models.BookedClass, error) {
	query := `SELECT id, teacher_id, student_id, date, recurring, created_at FROM booked_classes`
	var args []interface{}
	if teacherID != nil {
		query += ` WHERE teacher_id = $1`
		args = append(args, *teacherID)
	}
	query += ` ORDER BY date`

	var classes []models.BookedClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list booked classes: %w", err)
	}
	return classes, nil
}

// CreateBatch inserts classes through exec, normally a transaction.
func (r *BookedClassRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, classes []models.BookedClass) error {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO booked_classes (id, teacher_id, student_id, date, recurring, created_at)
		VALUES (:id, :teacher_id, :student_id, :date, :recurring, :created_at)`

	now := time.Now().UTC()
	for i := range classes {
		class := &classes[i]
		if class.ID == "" {
			class.ID = uuid.NewString()
		}
		if class.CreatedAt.IsZero() {
			class.CreatedAt = now
		}
		class.Date = class.Date.UTC()
		if _, err := sqlx.NamedExecContext(ctx, exec, query, class); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return fmt.Errorf("insert booked class %s: %w", class.Date.Format(time.RFC3339), ErrDuplicateBooking)
			}
			return fmt.Errorf("insert booked class: %w", err)
		}
	}
	return nil
}
