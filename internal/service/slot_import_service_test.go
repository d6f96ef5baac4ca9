package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/models"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
)

const sampleCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//lesson-booking//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly-monday\r\n" +
	"DTSTAMP:20231220T000000Z\r\n" +
	"DTSTART:20240101T080000Z\r\n" +
	"DTEND:20240101T100000Z\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:one-off-berlin\r\n" +
	"DTSTAMP:20231220T000000Z\r\n" +
	"DTSTART;TZID=Europe/Berlin:20240103T150000\r\n" +
	"DTEND;TZID=Europe/Berlin:20240103T160000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:half-hour\r\n" +
	"DTSTAMP:20231220T000000Z\r\n" +
	"DTSTART:20240102T080000Z\r\n" +
	"DTEND:20240102T083000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:no-end\r\n" +
	"DTSTAMP:20231220T000000Z\r\n" +
	"DTSTART:20240102T080000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:bad-rule\r\n" +
	"DTSTAMP:20231220T000000Z\r\n" +
	"DTSTART:20240104T080000Z\r\n" +
	"DTEND:20240104T090000Z\r\n" +
	"RRULE:FREQ=SOMETIMES\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type slotReplacerStub struct {
	teacherID int
	slots     []models.AvailableSlot
	err       error
}

func (s *slotReplacerStub) ReplaceForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID int, slots []models.AvailableSlot) error {
	if s.err != nil {
		return s.err
	}
	s.teacherID = teacherID
	s.slots = slots
	return nil
}

func TestParseSlots(t *testing.T) {
	slots, skipped, err := ParseSlots(strings.NewReader(sampleCalendar))
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.Equal(t, 2, slots[0].Hours())
	require.NotNil(t, slots[0].RecurrenceRule)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", *slots[0].RecurrenceRule)

	assert.Equal(t, time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC), slots[1].StartTime)
	assert.False(t, slots[1].HasRecurrence())

	uids := make([]string, len(skipped))
	for i, s := range skipped {
		uids[i] = s.UID
		assert.NotEmpty(t, s.Reason)
	}
	assert.Equal(t, []string{"half-hour", "no-end", "bad-rule"}, uids)
}

func TestParseSlotsRejectsGarbage(t *testing.T) {
	_, _, err := ParseSlots(strings.NewReader("not a calendar"))
	assert.Error(t, err)
}

func TestSlotImportServiceImport(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &slotReplacerStub{}
	queue := &queueStub{}
	svc := NewSlotImportService(tx, repo, queue, NewMetricsService(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Import(context.Background(), 101, strings.NewReader(sampleCalendar))
	require.NoError(t, err)

	assert.Equal(t, 101, resp.TeacherID)
	assert.Len(t, resp.Slots, 2)
	assert.Len(t, resp.Skipped, 3)
	assert.Equal(t, 101, repo.teacherID)
	assert.Len(t, queue.jobs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotImportServiceRollsBackOnFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &slotReplacerStub{err: errors.New("boom")}
	queue := &queueStub{}
	svc := NewSlotImportService(tx, repo, queue, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Import(context.Background(), 101, strings.NewReader(sampleCalendar))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, queue.jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotImportServiceRejectsEmptyCalendar(t *testing.T) {
	svc := NewSlotImportService(nil, &slotReplacerStub{}, nil, nil, nil)
	empty := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//x//EN\r\nEND:VCALENDAR\r\n"

	_, err := svc.Import(context.Background(), 101, strings.NewReader(empty))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Import(context.Background(), 0, strings.NewReader(sampleCalendar))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
