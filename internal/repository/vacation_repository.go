package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// VacationRepository reads teacher vacation days.
type VacationRepository struct {
	db *sqlx.DB
}

// NewVacationRepository constructs the repository.
func NewVacationRepository(db *sqlx.DB) *VacationRepository {
	return &VacationRepository{db: db}
}

// List returns every vacation day.
func (r *VacationRepository) List(ctx context.Context) ([]models.Vacation, error) {
	const query = `SELECT id, teacher_id, date, created_at FROM vacations ORDER BY date, teacher_id`
	var vacations []models.Vacation
	if err := r.db.SelectContext(ctx, &vacations, query); err != nil {
		return nil, fmt.Errorf("list vacations: %w", err)
	}
	return vacations, nil
}
