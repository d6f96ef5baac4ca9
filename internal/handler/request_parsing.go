package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/lesson-booking-api/internal/dto"
)

// parseInstant accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseInstant(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

func parseCodes(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	codes := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid time code %q", part)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// parseCells reads "weekday-hour" pairs such as "1-9,2-10".
func parseCells(raw string) ([]dto.SelectedCell, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	cells := make([]dto.SelectedCell, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, hour, found := strings.Cut(part, "-")
		if !found {
			return nil, fmt.Errorf("invalid cell %q: use weekday-hour", part)
		}
		weekday, err := strconv.Atoi(day)
		if err != nil || weekday < 0 || weekday > 6 {
			return nil, fmt.Errorf("invalid weekday in cell %q", part)
		}
		h, err := strconv.Atoi(hour)
		if err != nil || h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid hour in cell %q", part)
		}
		cells = append(cells, dto.SelectedCell{Weekday: weekday, Hour: h})
	}
	return cells, nil
}

func parseOptionalID(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	return &id, nil
}
