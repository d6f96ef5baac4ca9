package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/availability"
	"github.com/noah-isme/lesson-booking-api/internal/dto"
	"github.com/noah-isme/lesson-booking-api/internal/models"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
)

type slotReplacer interface {
	ReplaceForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID int, slots []models.AvailableSlot) error
}

// SlotImportService replaces a teacher's availability with the events of an
// iCalendar document.
type SlotImportService struct {
	tx      txProvider
	slots   slotReplacer
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSlotImportService constructs the service.
func NewSlotImportService(tx txProvider, slots slotReplacer, queue jobEnqueuer, metrics *MetricsService, logger *zap.Logger) *SlotImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotImportService{tx: tx, slots: slots, queue: queue, metrics: metrics, logger: logger}
}

// Import parses the calendar and stores every usable VEVENT as a slot,
// replacing the teacher's previous slots. Unusable events are reported
// back instead of failing the import.
func (s *SlotImportService) Import(ctx context.Context, teacherID int, r io.Reader) (*dto.SlotImportResponse, error) {
	if teacherID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid teacher id")
	}
	slots, skipped, err := ParseSlots(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar")
	}
	if len(slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar contains no usable events")
	}

	if err := s.replace(ctx, teacherID, slots); err != nil {
		return nil, err
	}

	s.metrics.RecordSlotImport(len(slots))
	s.logger.Info("available slots imported",
		zap.Int("teacher_id", teacherID),
		zap.Int("slots", len(slots)),
		zap.Int("skipped", len(skipped)),
	)
	enqueueInvalidation(s.queue, s.logger, "slot_import")

	return &dto.SlotImportResponse{TeacherID: teacherID, Slots: slots, Skipped: skipped}, nil
}

func (s *SlotImportService) replace(ctx context.Context, teacherID int, slots []models.AvailableSlot) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.slots.ReplaceForTeacher(ctx, tx, teacherID, slots); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store available slots")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit available slots")
	}
	return nil
}

// ParseSlots converts the VEVENTs of an iCalendar stream into slots. Events
// must start on the hour and last a whole number of hours.
func ParseSlots(r io.Reader) ([]models.AvailableSlot, []dto.SkippedEvent, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, nil, err
	}

	slots := []models.AvailableSlot{}
	skipped := []dto.SkippedEvent{}
	for _, evt := range cal.Events() {
		uid := ""
		if prop := evt.GetProperty(ics.ComponentPropertyUniqueId); prop != nil {
			uid = prop.Value
		}
		slot, reason := slotFromEvent(evt)
		if reason != "" {
			skipped = append(skipped, dto.SkippedEvent{UID: uid, Reason: reason})
			continue
		}
		slots = append(slots, slot)
	}
	return slots, skipped, nil
}

func slotFromEvent(evt *ics.VEvent) (models.AvailableSlot, string) {
	start, err := eventTime(evt, ics.ComponentPropertyDtStart)
	if err != nil {
		return models.AvailableSlot{}, err.Error()
	}
	end, err := eventTime(evt, ics.ComponentPropertyDtEnd)
	if err != nil {
		return models.AvailableSlot{}, err.Error()
	}

	switch {
	case !end.After(start):
		return models.AvailableSlot{}, "event does not end after it starts"
	case start.Minute() != 0 || start.Second() != 0:
		return models.AvailableSlot{}, "event does not start on the hour"
	case end.Sub(start)%time.Hour != 0:
		return models.AvailableSlot{}, "event duration is not a whole number of hours"
	}

	slot := models.AvailableSlot{StartTime: start, EndTime: end}
	if prop := evt.GetProperty(ics.ComponentPropertyRrule); prop != nil {
		rule := strings.TrimSpace(prop.Value)
		if err := availability.ValidateRule(rule, start); err != nil {
			return models.AvailableSlot{}, err.Error()
		}
		slot.RecurrenceRule = &rule
	}
	return slot, ""
}

var errMissingProperty = errors.New("missing property")

// eventTime reads a DATE-TIME property as UTC. Floating times without a
// usable TZID are taken as UTC.
func eventTime(evt *ics.VEvent, name ics.ComponentProperty) (time.Time, error) {
	prop := evt.GetProperty(name)
	if prop == nil {
		return time.Time{}, fmt.Errorf("%w %s", errMissingProperty, name)
	}

	loc := time.UTC
	if tzid, ok := prop.ICalParameters["TZID"]; ok && len(tzid) > 0 {
		if tzLoc, err := time.LoadLocation(tzid[0]); err == nil {
			loc = tzLoc
		}
	}

	val := strings.TrimSpace(prop.Value)
	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, val, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s %q", name, val)
}
