package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// AvailableSlotRepository reads and replaces teacher availability.
type AvailableSlotRepository struct {
	db *sqlx.DB
}

// NewAvailableSlotRepository constructs the repository.
func NewAvailableSlotRepository(db *sqlx.DB) *AvailableSlotRepository {
	return &AvailableSlotRepository{db: db}
}

func (r *AvailableSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns slots, optionally for one teacher or only those with a
// recurrence rule.
func (r *AvailableSlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.AvailableSlot, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.TeacherID != nil {
		args = append(args, *filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.RecurringOnly {
		conditions = append(conditions, "COALESCE(TRIM(recurrence_rule), '') <> ''")
	}

	query := `SELECT id, teacher_id, start_time, end_time, recurrence_rule, created_at FROM available_slots`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY teacher_id, start_time, id"

	var slots []models.AvailableSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// ReplaceForTeacher deletes every slot of the teacher and inserts slots in
// their place. IDs and creation times are written back into slots.
func (r *AvailableSlotRepository) ReplaceForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID int, slots []models.AvailableSlot) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM available_slots WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("delete available slots: %w", err)
	}

	const query = `INSERT INTO available_slots (teacher_id, start_time, end_time, recurrence_rule, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		slot.TeacherID = teacherID
		slot.CreatedAt = now
		if err := target.QueryRowxContext(ctx, query, slot.TeacherID, slot.StartTime.UTC(), slot.EndTime.UTC(), slot.RecurrenceRule, slot.CreatedAt).Scan(&slot.ID); err != nil {
			return fmt.Errorf("insert available slot: %w", err)
		}
	}
	return nil
}
