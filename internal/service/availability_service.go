package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/availability"
	"github.com/noah-isme/lesson-booking-api/internal/dto"
	"github.com/noah-isme/lesson-booking-api/internal/models"
	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
)

type slotLister interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.AvailableSlot, error)
}

type bookedClassLister interface {
	List(ctx context.Context, teacherID *int) ([]models.BookedClass, error)
}

type vacationLister interface {
	List(ctx context.Context) ([]models.Vacation, error)
}

type studentContextReader interface {
	AssignedTeacher(ctx context.Context, studentID int) (*int, error)
	StudentLanguages(ctx context.Context, studentID int) ([]int, error)
	TeacherLanguages(ctx context.Context, teacherIDs []int) (map[int][]int, error)
}

// AvailabilityOptions configures the engine for services that run it.
type AvailabilityOptions struct {
	Policies  availability.PolicySet
	MaxWindow time.Duration
	CacheTTL  time.Duration
	Clock     func() time.Time
}

// snapshot is every collection one engine run reads, fetched up front.
type snapshot struct {
	slots             []models.AvailableSlot
	bookings          []models.BookedClass
	vacations         []models.Vacation
	assignedTeacherID *int
	studentLanguages  []int
	teacherLanguages  map[int][]int
}

type snapshotLoader struct {
	slots     slotLister
	bookings  bookedClassLister
	vacations vacationLister
	students  studentContextReader
}

// load fetches slots, bookings and vacations, plus the student context when
// studentID is set. An explicit assignedTeacherID overrides the stored one.
func (l snapshotLoader) load(ctx context.Context, recurringOnly bool, studentID, assignedTeacherID *int) (*snapshot, error) {
	snap := &snapshot{assignedTeacherID: assignedTeacherID}

	var err error
	if snap.slots, err = l.slots.List(ctx, models.SlotFilter{RecurringOnly: recurringOnly}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load available slots")
	}
	if snap.bookings, err = l.bookings.List(ctx, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked classes")
	}
	if snap.vacations, err = l.vacations.List(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vacations")
	}

	if studentID == nil || l.students == nil {
		return snap, nil
	}
	if snap.assignedTeacherID == nil {
		if snap.assignedTeacherID, err = l.students.AssignedTeacher(ctx, *studentID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned teacher")
		}
	}
	if snap.studentLanguages, err = l.students.StudentLanguages(ctx, *studentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student languages")
	}
	if snap.teacherLanguages, err = l.students.TeacherLanguages(ctx, teacherIDs(snap.slots)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher languages")
	}
	return snap, nil
}

func teacherIDs(slots []models.AvailableSlot) []int {
	set := availability.NewTeacherSet()
	for _, slot := range slots {
		set.Add(slot.TeacherID)
	}
	return set.IDs()
}

// engine runs resolver and aggregator over a snapshot.
type engine struct {
	opts    AvailabilityOptions
	metrics *MetricsService
	logger  *zap.Logger
}

func (e engine) window(start, end time.Time) (availability.Window, error) {
	w, err := availability.NewWindow(start, end)
	if err != nil {
		return availability.Window{}, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, err.Error())
	}
	if e.opts.MaxWindow > 0 && w.Span() > e.opts.MaxWindow {
		return availability.Window{}, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("window may span at most %s", e.opts.MaxWindow))
	}
	return w, nil
}

// restrict intersects the teachers covering every selected instant with
// those covering every selected cell of w.
func (e engine) restrict(slots []models.AvailableSlot, w availability.Window, selected []time.Time, cells []availability.Cell) availability.Restriction {
	restriction := availability.ResolveQualifyingTeachers(selected, slots)
	if len(cells) == 0 || restriction.Impossible() {
		return restriction
	}
	if restriction.Restricted() {
		narrowed := make([]models.AvailableSlot, 0, len(slots))
		for _, slot := range slots {
			if restriction.Allows(slot.TeacherID) {
				narrowed = append(narrowed, slot)
			}
		}
		slots = narrowed
	}
	return availability.ResolveQualifyingCells(cells, w, slots)
}

// run narrows by the selection, then aggregates. A nil grid with an
// impossible restriction means no single teacher covers the selection.
func (e engine) run(snap *snapshot, w availability.Window, recurring bool, selected []time.Time, cells []availability.Cell, student bool) (*availability.Grid, availability.Restriction, error) {
	restriction := e.restrict(snap.slots, w, selected, cells)
	if restriction.Impossible() {
		return nil, restriction, nil
	}

	policy, policyName := e.opts.Policies.Browse, "browse"
	if student {
		policy, policyName = e.opts.Policies.Student, "student"
	}
	opts := []availability.Option{availability.WithLogger(e.logger)}
	if e.opts.Clock != nil {
		opts = append(opts, availability.WithClock(e.opts.Clock))
	}

	start := time.Now()
	grid, err := availability.NewAggregator(policy, opts...).Compute(availability.Input{
		Window:            w,
		Slots:             snap.slots,
		Bookings:          snap.bookings,
		Vacations:         snap.vacations,
		AssignedTeacherID: snap.assignedTeacherID,
		SelectedTeachers:  restriction.Teachers(),
		StudentLanguages:  snap.studentLanguages,
		TeacherLanguages:  snap.teacherLanguages,
		Recurring:         recurring,
	})
	if err != nil {
		if errors.Is(err, availability.ErrInvalidWindow) {
			return nil, restriction, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, err.Error())
		}
		return nil, restriction, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute availability")
	}
	e.metrics.ObserveAvailability(policyName, grid.Stats, time.Since(start))
	return grid, restriction, nil
}

// AvailabilityService answers free-cell and qualifying-teacher queries.
type AvailabilityService struct {
	loader    snapshotLoader
	engine    engine
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService builds the service.
func NewAvailabilityService(slots slotLister, bookings bookedClassLister, vacations vacationLister, students studentContextReader, cache *CacheService, metrics *MetricsService, opts AvailabilityOptions, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		loader:    snapshotLoader{slots: slots, bookings: bookings, vacations: vacations, students: students},
		engine:    engine{opts: opts, metrics: metrics, logger: logger},
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// ComputeFreeCells returns the weekday/hour cells free inside the window and
// the concrete instants behind them.
func (s *AvailabilityService) ComputeFreeCells(ctx context.Context, req dto.FreeCellsRequest) (*dto.FreeCellsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	w, err := s.engine.window(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	key := freeCellsKey(w, req)
	var cached dto.FreeCellsResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	snap, err := s.loader.load(ctx, req.Recurring, req.StudentID, req.AssignedTeacherID)
	if err != nil {
		return nil, err
	}
	grid, restriction, err := s.engine.run(snap, w, req.Recurring, availability.DecompressAll(req.Selected), toCells(req.Cells), req.StudentID != nil)
	if err != nil {
		return nil, err
	}

	resp := freeCellsResponse(grid, restriction)
	s.cache.Set(ctx, key, resp, s.engine.opts.CacheTTL)
	return resp, nil
}

// ResolveQualifyingTeachers returns the teachers whose slots cover every
// selected instant and cell. Only slot coverage is considered.
func (s *AvailabilityService) ResolveQualifyingTeachers(ctx context.Context, req dto.QualifyingTeachersRequest) (*dto.QualifyingTeachersResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection")
	}
	var w availability.Window
	if len(req.Cells) > 0 {
		var err error
		if w, err = s.engine.window(req.Start, req.End); err != nil {
			return nil, err
		}
	}
	slots, err := s.loader.slots.List(ctx, models.SlotFilter{TeacherID: req.TeacherID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load available slots")
	}

	restriction := s.engine.restrict(slots, w, availability.DecompressAll(req.Selected), toCells(req.Cells))
	resp := &dto.QualifyingTeachersResponse{
		Restricted: restriction.Restricted(),
		TeacherIDs: []int{},
		Impossible: restriction.Impossible(),
	}
	if restriction.Restricted() {
		resp.TeacherIDs = restriction.Teachers().IDs()
	}
	return resp, nil
}

func freeCellsResponse(grid *availability.Grid, restriction availability.Restriction) *dto.FreeCellsResponse {
	resp := &dto.FreeCellsResponse{Cells: []dto.FreeCell{}, Instants: []int64{}}
	if grid == nil {
		resp.Impossible = restriction.Impossible()
		return resp
	}
	for _, cell := range grid.Cells() {
		resp.Cells = append(resp.Cells, dto.FreeCell{
			Weekday:    cell.Weekday,
			Hour:       cell.Hour,
			TeacherIDs: grid.Teachers(cell).IDs(),
		})
	}
	resp.Instants = append(resp.Instants, grid.TimeCodes()...)
	return resp
}

func freeCellsKey(w availability.Window, req dto.FreeCellsRequest) string {
	mode := "o"
	if req.Recurring {
		mode = "r"
	}
	who := "anon"
	switch {
	case req.StudentID != nil:
		who = "s" + strconv.Itoa(*req.StudentID)
		if req.AssignedTeacherID != nil {
			who += "t" + strconv.Itoa(*req.AssignedTeacherID)
		}
	case req.AssignedTeacherID != nil:
		who = "t" + strconv.Itoa(*req.AssignedTeacherID)
	}
	sorted := append([]int64(nil), req.Selected...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	codes := make([]string, len(sorted))
	for i, code := range sorted {
		codes[i] = strconv.FormatInt(code, 10)
	}
	cells := make([]string, 0, len(req.Cells))
	for _, cell := range toCells(req.Cells) {
		cells = append(cells, fmt.Sprintf("%d-%d", cell.Weekday, cell.Hour))
	}
	sort.Strings(cells)
	return fmt.Sprintf("availability:cells:%d:%d:%s:%s:%s:%s",
		w.Start.UnixMilli(), w.End.UnixMilli(), mode, who, strings.Join(codes, ","), strings.Join(cells, ","))
}

func toCells(selected []dto.SelectedCell) []availability.Cell {
	if len(selected) == 0 {
		return nil
	}
	cells := make([]availability.Cell, len(selected))
	for i, c := range selected {
		cells[i] = availability.Cell{Weekday: c.Weekday, Hour: c.Hour}
	}
	return cells
}
