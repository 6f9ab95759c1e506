// Package recurrence evaluates special-event windows against candidate slots.
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"raceplan/internal/model"
)

// ErrBadTimeOfDay is returned for start/end values that are not "HH:MM".
var ErrBadTimeOfDay = errors.New("invalid time of day")

// ParseTimeOfDay parses "HH:MM" (or "H:MM") into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || len(mm) != 2 || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// InWeek reports whether the event recurs in the ISO week containing date.
func InWeek(ev model.SpecialEvent, date time.Time) bool {
	if ev.Frequency != model.Biweekly {
		return true
	}
	_, week := date.ISOWeek()
	return week%2 == ev.RefParity
}

// Window returns the absolute event window anchored on the calendar date of day,
// in day's location. End <= Start wraps to the next day.
func Window(ev model.SpecialEvent, day time.Time) (start, end time.Time, err error) {
	so, err := ParseTimeOfDay(ev.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("event %q start: %w", ev.Name, err)
	}
	eo, err := ParseTimeOfDay(ev.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("event %q end: %w", ev.Name, err)
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	start = midnight.Add(so)
	end = midnight.Add(eo)
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return start, end, nil
}

// Active reports whether ev is active anywhere in the slot window starting at
// windowStart (server frame). The window's own weekday and ISO week must match
// the event; a window on any other day is never active. Two runs are then
// checked: the one anchored on the window's date and the previous date's run,
// which may wrap past midnight into the window. An error means the record is
// unusable; callers treat it as inactive.
func Active(ev model.SpecialEvent, windowStart time.Time) (bool, error) {
	if !ev.OnDay(windowStart.Weekday()) || !InWeek(ev, windowStart) {
		// Still parse, so a broken record is reported on every day.
		if _, _, err := Window(ev, windowStart); err != nil {
			return false, err
		}
		return false, nil
	}
	windowEnd := windowStart.Add(model.SlotWidth)
	for _, anchor := range []time.Time{windowStart, windowStart.AddDate(0, 0, -1)} {
		start, end, err := Window(ev, anchor)
		if err != nil {
			return false, err
		}
		if start.Before(windowEnd) && end.After(windowStart) {
			return true, nil
		}
	}
	return false, nil
}

// IsActive is Active with unusable records reported as inactive.
func IsActive(ev model.SpecialEvent, windowStart time.Time) bool {
	ok, _ := Active(ev, windowStart)
	return ok
}

// Validate checks an event at the write boundary.
func Validate(ev model.SpecialEvent) error {
	if strings.TrimSpace(ev.Name) == "" {
		return errors.New("event name required")
	}
	if len(ev.Days) == 0 {
		return fmt.Errorf("event %q: at least one day required", ev.Name)
	}
	switch ev.Frequency {
	case model.Weekly, model.Biweekly:
	default:
		return fmt.Errorf("event %q: unknown frequency %q", ev.Name, ev.Frequency)
	}
	if ev.RefParity != 0 && ev.RefParity != 1 {
		return fmt.Errorf("event %q: ref_parity must be 0 or 1", ev.Name)
	}
	if _, err := ParseTimeOfDay(ev.Start); err != nil {
		return fmt.Errorf("event %q start: %w", ev.Name, err)
	}
	if _, err := ParseTimeOfDay(ev.End); err != nil {
		return fmt.Errorf("event %q end: %w", ev.Name, err)
	}
	return nil
}
