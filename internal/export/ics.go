// Package export writes the plan and upcoming special events as iCalendar.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"raceplan/internal/model"
	"raceplan/internal/plan"
	"raceplan/internal/recurrence"
)

const (
	prodID = "-//raceplan//Arms Race planner//EN"
	domain = "raceplan"
)

// Calendar builds a VCALENDAR with one VEVENT per plan row that carries an
// Arms Race event, and one per special-event occurrence. stamp is used for
// DTSTAMP so output is reproducible.
func Calendar(p plan.Plan, occ []recurrence.Occurrence, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)
	cal.SetName("Arms Race plan")

	for _, row := range p.Rows {
		if row.Event == model.NoEvent {
			continue
		}
		uid := fmt.Sprintf("slot-%s-%d@%s", row.Slot.GameDate, row.Slot.Index, domain)
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(row.Slot.Start)
		ev.SetEndAt(row.Slot.End)
		ev.SetSummary(rowSummary(row))
		if d := rowDescription(row); d != "" {
			ev.SetDescription(d)
		}
		ev.AddProperty(ical.ComponentPropertyCategories, "ARMS RACE")
	}

	for _, o := range occ {
		uid := fmt.Sprintf("event-%s-%d@%s", slug(o.Name), o.Start.Unix(), domain)
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(o.Start)
		ev.SetEndAt(o.End)
		ev.SetSummary(o.Name)
		ev.AddProperty(ical.ComponentPropertyCategories, "SPECIAL EVENT")
	}
	return cal
}

// Write serializes the calendar to w.
func Write(w io.Writer, p plan.Plan, occ []recurrence.Occurrence, stamp time.Time) error {
	return Calendar(p, occ, stamp).SerializeTo(w)
}

func rowSummary(r plan.Row) string {
	s := "Arms Race: " + r.Event
	if r.Double {
		s += " (x2)"
	}
	return s
}

func rowDescription(r plan.Row) string {
	var lines []string
	if r.Task != "" {
		lines = append(lines, "Task: "+r.Task)
	}
	if r.Points != "" {
		lines = append(lines, "Points: "+r.Points)
	}
	if r.Double {
		lines = append(lines, "VS Duel: "+strings.Join(r.Matched, ", "))
	}
	if r.Swapped {
		lines = append(lines, "Swapped slot")
	}
	if len(r.SpecialEvents) > 0 {
		lines = append(lines, "Events: "+strings.Join(r.SpecialEvents, ", "))
	}
	if len(r.EndingTasks) > 0 {
		lines = append(lines, "Ending: "+strings.Join(r.EndingTasks, ", "))
	}
	return strings.Join(lines, "\n")
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
