package availability

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for missing or inverted date windows.
var ErrInvalidWindow = errors.New("invalid availability window")

// Window is a closed interval [Start, End] of instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates and normalises a window to UTC.
func NewWindow(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// DayWindow spans whole UTC days from the day of first to the end of the day of last.
func DayWindow(first, last time.Time) (Window, error) {
	return NewWindow(startOfDay(first), startOfDay(last).Add(24*time.Hour-time.Millisecond))
}

// Contains reports whether t lies within the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Span is the length of the window.
func (w Window) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// Instant materialises a cell to the first instant inside the window that
// falls on the cell's weekday and hour.
func (w Window) Instant(c Cell) (time.Time, bool) {
	if !c.Valid() {
		return time.Time{}, false
	}
	day := startOfDay(w.Start)
	offset := (c.Weekday - int(day.Weekday()) + 7) % 7
	candidate := day.AddDate(0, 0, offset).Add(time.Duration(c.Hour) * time.Hour)
	if candidate.Before(w.Start) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	if !w.Contains(candidate) {
		return time.Time{}, false
	}
	return candidate, true
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
