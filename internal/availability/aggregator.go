package availability

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// Input is the snapshot one computation runs over. Every collection is
// fetched by the caller before Compute is invoked.
type Input struct {
	Window    Window
	Slots     []models.AvailableSlot
	Bookings  []models.BookedClass
	Vacations []models.Vacation

	AssignedTeacherID *int
	SelectedTeachers  TeacherSet

	StudentLanguages []int
	TeacherLanguages map[int][]int

	Recurring bool
}

// Stats summarises one computation.
type Stats struct {
	Slots        int
	Occurrences  int
	Candidates   int
	Accepted     int
	RuleFailures int
}

// Grid maps weekday/hour cells and concrete instants to the teachers free then.
type Grid struct {
	cells    map[Cell]TeacherSet
	instants map[int64]TeacherSet
	Stats    Stats
}

func newGrid() *Grid {
	return &Grid{
		cells:    make(map[Cell]TeacherSet),
		instants: make(map[int64]TeacherSet),
	}
}

func (g *Grid) add(teacherID int, instant time.Time) {
	cell := CellOf(instant)
	if g.cells[cell] == nil {
		g.cells[cell] = make(TeacherSet)
	}
	g.cells[cell].Add(teacherID)

	key := instant.UnixMilli()
	if g.instants[key] == nil {
		g.instants[key] = make(TeacherSet)
	}
	g.instants[key].Add(teacherID)
}

// Cells returns the free cells ordered by weekday then hour.
func (g *Grid) Cells() []Cell {
	cells := make([]Cell, 0, len(g.cells))
	for cell := range g.cells {
		cells = append(cells, cell)
	}
	sortCells(cells)
	return cells
}

// Teachers returns the teachers free in cell.
func (g *Grid) Teachers(cell Cell) TeacherSet {
	return g.cells[cell]
}

// Instants returns the free concrete instants in ascending order.
func (g *Grid) Instants() []time.Time {
	keys := make([]int64, 0, len(g.instants))
	for key := range g.instants {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	result := make([]time.Time, 0, len(keys))
	for _, key := range keys {
		result = append(result, time.UnixMilli(key).UTC())
	}
	return result
}

// TeachersAt returns the teachers free at instant.
func (g *Grid) TeachersAt(instant time.Time) TeacherSet {
	return g.instants[instant.UnixMilli()]
}

// TimeCodes returns the free instants in their compressed form.
func (g *Grid) TimeCodes() []int64 {
	instants := g.Instants()
	codes := make([]int64, 0, len(instants))
	for _, instant := range instants {
		codes = append(codes, Compress(instant))
	}
	return codes
}

// Aggregator enumerates slot occurrences hour by hour, evaluates its policy
// on each and collects the accepted teachers per cell. It holds no mutable
// state and can be shared between goroutines.
type Aggregator struct {
	policy Policy
	logger *zap.Logger
	now    func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for rule warnings and rejection traces.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the source of "now" for the time window predicate.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator builds an aggregator evaluating policy.
func NewAggregator(policy Policy, opts ...Option) *Aggregator {
	a := &Aggregator{
		policy: policy,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute evaluates every hour of every slot occurrence inside the window.
// Slots with an unparseable rule are skipped with a warning.
func (a *Aggregator) Compute(in Input) (*Grid, error) {
	window, err := NewWindow(in.Window.Start, in.Window.End)
	if err != nil {
		return nil, err
	}

	now := a.now()
	grid := newGrid()
	grid.Stats.Slots = len(in.Slots)

	for i := range in.Slots {
		slot := &in.Slots[i]
		compiled := compile(slot)
		occurrences, err := expandCompiled(*slot, compiled, window)
		if err != nil {
			grid.Stats.RuleFailures++
			a.logger.Warn("skipping slot with invalid recurrence rule",
				zap.Int64("slot_id", slot.ID),
				zap.Int("teacher_id", slot.TeacherID),
				zap.String("rule", slot.Rule()),
				zap.Error(err),
			)
			continue
		}

		candidate := Candidate{
			Slot:              slot,
			Now:               now,
			Bookings:          in.Bookings,
			Vacations:         in.Vacations,
			AssignedTeacherID: in.AssignedTeacherID,
			SelectedTeachers:  in.SelectedTeachers,
			StudentLanguages:  in.StudentLanguages,
			TeacherLanguages:  in.TeacherLanguages,
			Recurring:         in.Recurring,
			compiled:          compiled,
		}
		hours := slot.Hours()
		for _, occ := range occurrences {
			grid.Stats.Occurrences++
			for h := 0; h < hours; h++ {
				candidate.Instant = occ.Add(time.Duration(h) * time.Hour)
				grid.Stats.Candidates++
				ok, failed := a.policy.Evaluate(&candidate)
				if !ok {
					if ce := a.logger.Check(zap.DebugLevel, "candidate rejected"); ce != nil {
						ce.Write(
							zap.Int("teacher_id", slot.TeacherID),
							zap.Time("instant", candidate.Instant),
							zap.String("predicate", failed),
						)
					}
					continue
				}
				grid.Stats.Accepted++
				grid.add(slot.TeacherID, candidate.Instant)
			}
		}
	}
	return grid, nil
}
