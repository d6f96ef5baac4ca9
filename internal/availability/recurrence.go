package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/lesson-booking-api/internal/models"
)

// ErrInvalidRule is returned when a slot's recurrence rule cannot be parsed.
// Callers treat it as "no occurrences", never as a request failure.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// parseRule parses an RFC 5545 RRULE anchored at dtstart. A DTSTART line or
// an "RRULE:" prefix in raw is accepted; dtstart always wins as the anchor.
func parseRule(raw string, dtstart time.Time) (*rrule.RRule, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "\n") {
		raw = strings.TrimPrefix(raw, "RRULE:")
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty rule", ErrInvalidRule)
	}
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	opt.Dtstart = dtstart.UTC()
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return rule, nil
}

// ValidateRule reports whether raw parses as a recurrence anchored at dtstart.
func ValidateRule(raw string, dtstart time.Time) error {
	_, err := parseRule(raw, dtstart)
	return err
}

// compiledSlot caches the parsed rule of a slot so that one evaluation pass
// parses each rule once.
type compiledSlot struct {
	rule *rrule.RRule
	err  error
}

func compile(slot *models.AvailableSlot) *compiledSlot {
	if slot == nil || !slot.HasRecurrence() {
		return &compiledSlot{}
	}
	rule, err := parseRule(slot.Rule(), slot.StartTime)
	return &compiledSlot{rule: rule, err: err}
}

// Expand returns the ordered, de-duplicated occurrence starts of slot inside
// the window, boundaries included. A slot without a rule has exactly one
// occurrence, its own start. An unparseable rule yields no occurrences and
// an error wrapping ErrInvalidRule.
func Expand(slot models.AvailableSlot, w Window) ([]time.Time, error) {
	return expandCompiled(slot, compile(&slot), w)
}

func expandCompiled(slot models.AvailableSlot, c *compiledSlot, w Window) ([]time.Time, error) {
	if !slot.HasRecurrence() {
		start := slot.StartTime.UTC()
		if w.Contains(start) {
			return []time.Time{start}, nil
		}
		return nil, nil
	}
	if c.err != nil {
		return nil, c.err
	}
	occurrences := c.rule.Between(w.Start, w.End, true)
	result := make([]time.Time, 0, len(occurrences))
	var last time.Time
	for i, occ := range occurrences {
		occ = occ.UTC()
		if i > 0 && occ.Equal(last) {
			continue
		}
		result = append(result, occ)
		last = occ
	}
	return result, nil
}

// lastOccurrence returns the latest occurrence start at or before instant.
func (c *compiledSlot) lastOccurrence(instant time.Time) (time.Time, bool) {
	if c == nil || c.rule == nil {
		return time.Time{}, false
	}
	occ := c.rule.Before(instant, true)
	if occ.IsZero() {
		return time.Time{}, false
	}
	return occ.UTC(), true
}
