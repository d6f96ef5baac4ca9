package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositoryAssignedTeacher(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT teacher_id FROM student_teachers`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow(101))
	mock.ExpectQuery(`SELECT teacher_id FROM student_teachers`).
		WithArgs(8).
		WillReturnError(sql.ErrNoRows)

	assigned, err := repo.AssignedTeacher(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, assigned)
	assert.Equal(t, 101, *assigned)

	none, err := repo.AssignedTeacher(context.Background(), 8)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryAssignTeacher(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`INSERT INTO student_teachers .* ON CONFLICT \(student_id\) DO NOTHING`).
		WithArgs(7, 101, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO student_teachers`).
		WithArgs(7, 202, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assigned, err := repo.AssignTeacher(context.Background(), nil, 7, 101)
	require.NoError(t, err)
	assert.True(t, assigned)

	assigned, err = repo.AssignTeacher(context.Background(), nil, 7, 202)
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryLanguages(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT language_id FROM student_languages`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"language_id"}).AddRow(1).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM teacher_languages WHERE teacher_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "language_id"}).
			AddRow(101, 1).AddRow(101, 2).AddRow(202, 3))

	student, err := repo.StudentLanguages(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, student)

	teachers, err := repo.TeacherLanguages(context.Background(), []int{101, 202, 303})
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{101: {1, 2}, 202: {3}}, teachers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryTeacherLanguagesEmptyInput(t *testing.T) {
	db, _, cleanup := newSQLMock(t)
	defer cleanup()

	teachers, err := NewStudentRepository(db).TeacherLanguages(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, teachers)
}
