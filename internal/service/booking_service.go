package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/availability"
	"github.com/noah-isme/lesson-booking-api/internal/dto"
	"github.com/noah-isme/lesson-booking-api/internal/models"
	"github.com/noah-isme/lesson-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type bookedClassWriter interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, classes []models.BookedClass) error
}

type teacherAssigner interface {
	AssignTeacher(ctx context.Context, exec sqlx.ExtContext, studentID, teacherID int) (bool, error)
}

// BookingService books a set of instants for a student with a single teacher.
type BookingService struct {
	loader    snapshotLoader
	engine    engine
	tx        txProvider
	classes   bookedClassWriter
	assigner  teacherAssigner
	queue     jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	pick      func(availability.TeacherSet) (int, bool)
}

// NewBookingService builds the service. queue may be nil, in which case
// cached availability simply expires.
func NewBookingService(tx txProvider, slots slotLister, bookings bookedClassLister, vacations vacationLister, students studentContextReader, classes bookedClassWriter, assigner teacherAssigner, queue jobEnqueuer, metrics *MetricsService, opts AvailabilityOptions, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		loader:    snapshotLoader{slots: slots, bookings: bookings, vacations: vacations, students: students},
		engine:    engine{opts: opts, metrics: metrics, logger: logger},
		tx:        tx,
		classes:   classes,
		assigner:  assigner,
		queue:     queue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		pick: func(set availability.TeacherSet) (int, bool) {
			return availability.PickTeacher(set, nil)
		},
	}
}

// Book reserves every requested instant for studentID. The student's
// assigned teacher is used when there is one; otherwise a teacher is drawn
// at random from those free at every instant and becomes the assignment.
func (s *BookingService) Book(ctx context.Context, studentID int, req dto.BookingRequest) (*dto.BookingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordBooking(BookingOutcomeInvalid, req.Recurring)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	instants := uniqueInstants(req.Instants)
	w, err := availability.DayWindow(instants[0], instants[len(instants)-1])
	if err == nil {
		w, err = s.engine.window(w.Start, w.End)
	}
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeInvalid, req.Recurring)
		return nil, err
	}

	snap, err := s.loader.load(ctx, req.Recurring, &studentID, nil)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeStorageError, req.Recurring)
		return nil, err
	}

	teacherID, err := s.chooseTeacher(snap, w, instants, req.Recurring)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeNoTeacher, req.Recurring)
		return nil, err
	}

	classes := make([]models.BookedClass, len(instants))
	for i, instant := range instants {
		classes[i] = models.BookedClass{TeacherID: teacherID, StudentID: studentID, Date: instant, Recurring: req.Recurring}
	}

	newAssignment, err := s.persist(ctx, studentID, teacherID, snap.assignedTeacherID == nil, classes)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSlotTaken) {
			s.metrics.RecordBooking(BookingOutcomeConflict, req.Recurring)
		} else {
			s.metrics.RecordBooking(BookingOutcomeStorageError, req.Recurring)
		}
		return nil, err
	}

	s.metrics.RecordBooking(BookingOutcomeBooked, req.Recurring)
	s.logger.Info("classes booked",
		zap.Int("student_id", studentID),
		zap.Int("teacher_id", teacherID),
		zap.Int("classes", len(classes)),
		zap.Bool("recurring", req.Recurring),
		zap.Bool("new_assignment", newAssignment),
	)
	enqueueInvalidation(s.queue, s.logger, "booking")

	return &dto.BookingResponse{TeacherID: teacherID, NewAssignment: newAssignment, Classes: classes}, nil
}

// chooseTeacher runs the student policy over the window and keeps the
// teachers free at every requested instant.
func (s *BookingService) chooseTeacher(snap *snapshot, w availability.Window, instants []time.Time, recurring bool) (int, error) {
	grid, restriction, err := s.engine.run(snap, w, recurring, instants, nil, true)
	if err != nil {
		return 0, err
	}
	if restriction.Impossible() {
		return 0, appErrors.Clone(appErrors.ErrNoQualifyingTeacher, "")
	}

	var eligible availability.TeacherSet
	for _, instant := range instants {
		free := grid.TeachersAt(instant)
		if eligible == nil {
			eligible = free
		} else {
			eligible = eligible.Intersect(free)
		}
		if eligible.Len() == 0 {
			return 0, appErrors.Clone(appErrors.ErrNoQualifyingTeacher, "selected slots are no longer available")
		}
	}

	if snap.assignedTeacherID != nil {
		if !eligible.Has(*snap.assignedTeacherID) {
			return 0, appErrors.Clone(appErrors.ErrNoQualifyingTeacher, "assigned teacher is not available for the selected slots")
		}
		return *snap.assignedTeacherID, nil
	}
	teacherID, ok := s.pick(eligible)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNoQualifyingTeacher, "")
	}
	return teacherID, nil
}

func (s *BookingService) persist(ctx context.Context, studentID, teacherID int, assign bool, classes []models.BookedClass) (newAssignment bool, err error) {
	if s.tx == nil {
		return false, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.classes.CreateBatch(ctx, tx, classes); err != nil {
		if errors.Is(err, repository.ErrDuplicateBooking) {
			return false, appErrors.Wrap(err, appErrors.ErrSlotTaken.Code, appErrors.ErrSlotTaken.Status, appErrors.ErrSlotTaken.Message)
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store booked classes")
	}
	if assign {
		if newAssignment, err = s.assigner.AssignTeacher(ctx, tx, studentID, teacherID); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher")
		}
	}
	if err = tx.Commit(); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking")
	}
	return newAssignment, nil
}

func uniqueInstants(codes []int64) []time.Time {
	seen := make(map[int64]struct{}, len(codes))
	out := make([]time.Time, 0, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, availability.Decompress(code))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
