package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-booking-api/internal/availability"
	"github.com/noah-isme/lesson-booking-api/internal/models"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
	"github.com/noah-isme/lesson-booking-api/pkg/jobs"
)

// 2024-01-01 is a Monday; the fixed clock sits a week earlier so the lead
// time never interferes unless a test moves it.
var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return monday.AddDate(0, 0, -7) }

func at(day time.Time, hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func intPtr(v int) *int { return &v }

func oneOff(teacherID int, start time.Time, hours int) models.AvailableSlot {
	return models.AvailableSlot{TeacherID: teacherID, StartTime: start, EndTime: start.Add(time.Duration(hours) * time.Hour)}
}

func weekly(teacherID int, start time.Time, hours int, rule string) models.AvailableSlot {
	slot := oneOff(teacherID, start, hours)
	slot.RecurrenceRule = &rule
	return slot
}

func testOptions() AvailabilityOptions {
	return AvailabilityOptions{
		Policies:  availability.DefaultPolicies(24 * time.Hour),
		MaxWindow: 62 * 24 * time.Hour,
		CacheTTL:  time.Minute,
		Clock:     fixedClock,
	}
}

type slotStub struct {
	slots   []models.AvailableSlot
	err     error
	filters []models.SlotFilter
}

func (s *slotStub) List(ctx context.Context, filter models.SlotFilter) ([]models.AvailableSlot, error) {
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.AvailableSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		if filter.TeacherID != nil && slot.TeacherID != *filter.TeacherID {
			continue
		}
		if filter.RecurringOnly && !slot.HasRecurrence() {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

type bookedStub struct {
	classes []models.BookedClass
}

func (s *bookedStub) List(ctx context.Context, teacherID *int) ([]models.BookedClass, error) {
	return s.classes, nil
}

type vacationStub struct {
	vacations []models.Vacation
}

func (s *vacationStub) List(ctx context.Context) ([]models.Vacation, error) {
	return s.vacations, nil
}

type studentStub struct {
	assigned         map[int]int
	languages        map[int][]int
	teacherLanguages map[int][]int
	assignCalls      int
}

func (s *studentStub) AssignedTeacher(ctx context.Context, studentID int) (*int, error) {
	if id, ok := s.assigned[studentID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (s *studentStub) StudentLanguages(ctx context.Context, studentID int) ([]int, error) {
	return s.languages[studentID], nil
}

func (s *studentStub) TeacherLanguages(ctx context.Context, teacherIDs []int) (map[int][]int, error) {
	out := make(map[int][]int, len(teacherIDs))
	for _, id := range teacherIDs {
		if langs, ok := s.teacherLanguages[id]; ok {
			out[id] = langs
		}
	}
	return out, nil
}

func (s *studentStub) AssignTeacher(ctx context.Context, exec sqlx.ExtContext, studentID, teacherID int) (bool, error) {
	s.assignCalls++
	if _, ok := s.assigned[studentID]; ok {
		return false, nil
	}
	if s.assigned == nil {
		s.assigned = map[int]int{}
	}
	s.assigned[studentID] = teacherID
	return true, nil
}

type classWriterStub struct {
	stored []models.BookedClass
	err    error
}

func (s *classWriterStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, classes []models.BookedClass) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, classes...)
	return nil
}

type memoryCacheStub struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newMemoryCacheStub() *memoryCacheStub {
	return &memoryCacheStub{entries: map[string][]byte{}}
}

func (m *memoryCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	m.sets++
	return nil
}

func (m *memoryCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

type queueStub struct {
	jobs []jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
