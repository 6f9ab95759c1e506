// Package gametime maps wall-clock instants onto the game calendar.
//
// The game runs on a fixed server offset (e.g. UTC-2). A game day starts at the
// configured reset hour of server time and is tiled by six contiguous 4-hour slots.
// Every instant belongs to exactly one (game day, slot) pair.
package gametime

import (
	"fmt"
	"time"

	"raceplan/internal/model"
)

// Resolver converts instants into game days and slots.
// The zero value resolves in UTC with a midnight reset.
type Resolver struct {
	loc       *time.Location
	resetHour int
}

// New returns a Resolver for the given server location and reset hour.
// resetHour is normalized into 0..23.
func New(loc *time.Location, resetHour int) Resolver {
	if loc == nil {
		loc = time.UTC
	}
	resetHour %= 24
	if resetHour < 0 {
		resetHour += 24
	}
	return Resolver{loc: loc, resetHour: resetHour}
}

// Location is the server time zone.
func (r Resolver) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

// ResetHour is the server-clock hour at which a game day begins.
func (r Resolver) ResetHour() int { return r.resetHour }

// ServerTime returns t in the server frame.
func (r Resolver) ServerTime(t time.Time) time.Time { return t.In(r.Location()) }

// Slot identifies one 4-hour window of a game day. Start and End are in the
// server frame; the window is half-open [Start, End).
type Slot struct {
	Day      time.Weekday
	Index    int // 1..6
	GameDate string
	Start    time.Time
	End      time.Time
}

// Contains reports whether t falls inside the slot window.
func (s Slot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

func (s Slot) String() string {
	return fmt.Sprintf("%s slot %d (%s–%s)", s.Day, s.Index, s.Start.Format("15:04"), s.End.Format("15:04"))
}

// DayStart returns the most recent reset instant at or before t, in the server frame.
func (r Resolver) DayStart(t time.Time) time.Time {
	s := r.ServerTime(t)
	start := time.Date(s.Year(), s.Month(), s.Day(), r.resetHour, 0, 0, 0, r.Location())
	if s.Hour() < r.resetHour {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// NextReset returns the first reset instant strictly after t.
func (r Resolver) NextReset(t time.Time) time.Time {
	return r.DayStart(t).AddDate(0, 0, 1)
}

// Resolve maps t onto its game day and slot.
func (r Resolver) Resolve(t time.Time) Slot {
	dayStart := r.DayStart(t)
	idx := int(r.ServerTime(t).Sub(dayStart)/model.SlotWidth) + 1
	if idx > model.SlotCount {
		// Only reachable with a non-fixed Location passed to New directly.
		idx = model.SlotCount
	}
	return r.slotOf(dayStart, idx)
}

// DaySlots returns the six slots of the game day containing t, in order.
func (r Resolver) DaySlots(t time.Time) [model.SlotCount]Slot {
	dayStart := r.DayStart(t)
	var out [model.SlotCount]Slot
	for i := range out {
		out[i] = r.slotOf(dayStart, i+1)
	}
	return out
}

// GameDayStart parses a game date ("2006-01-02") and returns its reset instant.
func (r Resolver) GameDayStart(gameDate string) (time.Time, error) {
	d, err := time.ParseInLocation(model.GameDateLayout, gameDate, r.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("game date %q: %w", gameDate, err)
	}
	return d.Add(time.Duration(r.resetHour) * time.Hour), nil
}

func (r Resolver) slotOf(dayStart time.Time, idx int) Slot {
	start := dayStart.Add(time.Duration(idx-1) * model.SlotWidth)
	end := start.Add(model.SlotWidth)
	if idx == model.SlotCount {
		end = dayStart.AddDate(0, 0, 1)
	}
	return Slot{
		Day:      dayStart.Weekday(),
		Index:    idx,
		GameDate: dayStart.Format(model.GameDateLayout),
		Start:    start,
		End:      end,
	}
}
