package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"raceplan/internal/model"
)

// Occurrence is one concrete run of a special event.
type Occurrence struct {
	Name  string
	Start time.Time
	End   time.Time
}

var rruleDays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Occurrences expands ev into concrete windows intersecting [from, to) in loc.
// Biweekly events are filtered by ISO week parity of the occurrence date.
func Occurrences(ev model.SpecialEvent, from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	if !to.After(from) || len(ev.Days) == 0 {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	so, err := ParseTimeOfDay(ev.Start)
	if err != nil {
		return nil, fmt.Errorf("event %q start: %w", ev.Name, err)
	}

	// Start a day early so a window wrapping past midnight into `from` is kept.
	f := from.In(loc).AddDate(0, 0, -1)
	dtstart := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc).Add(so)

	days := make([]rrule.Weekday, 0, len(ev.Days))
	for _, d := range ev.Days {
		days = append(days, rruleDays[d])
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart,
		Byweekday: days,
		Wkst:      rrule.MO,
	})
	if err != nil {
		return nil, fmt.Errorf("event %q rrule: %w", ev.Name, err)
	}

	var out []Occurrence
	for _, at := range r.Between(dtstart, to.In(loc), true) {
		if !ev.OnDay(at.Weekday()) || !InWeek(ev, at) {
			continue
		}
		start, end, err := Window(ev, at)
		if err != nil {
			return nil, err
		}
		if start.Before(to) && end.After(from) {
			out = append(out, Occurrence{Name: ev.Name, Start: start, End: end})
		}
	}
	return out, nil
}

// Upcoming expands every event over [from, to) and returns the occurrences
// sorted by start. Unusable records are returned in skipped.
func Upcoming(events []model.SpecialEvent, from, to time.Time, loc *time.Location) (out []Occurrence, skipped []error) {
	for _, ev := range events {
		occ, err := Occurrences(ev, from, to, loc)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, occ...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].Name < out[j].Name
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, skipped
}
