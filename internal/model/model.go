package model

import (
	"fmt"
	"strings"
	"time"
)

// SlotCount is the number of Arms Race slots in one game day.
const SlotCount = 6

// SlotWidth is the fixed width of a slot window.
const SlotWidth = 4 * time.Hour

// NoEvent is rendered wherever a schedule lookup finds nothing.
const NoEvent = "N/A"

// ScheduleType discriminates rows of the schedule table.
type ScheduleType string

const (
	TypeArmsRace ScheduleType = "ArmsRace"
	TypeVS       ScheduleType = "VS"
)

// ScheduleSlot is one Arms Race row. At most one row exists per (Day, Slot).
type ScheduleSlot struct {
	Day    time.Weekday `json:"day"`
	Slot   int          `json:"slot"`
	Event  string       `json:"event"`
	Task   string       `json:"task"`
	Points string       `json:"points,omitempty"`
}

// VsDuelEntry is one VS Duel task row. Many rows share a day.
type VsDuelEntry struct {
	Day    time.Weekday `json:"day"`
	Event  string       `json:"event"`
	Task   string       `json:"task"`
	Points *float64     `json:"points,omitempty"`
}

// Schedule is the canonical (pre-swap) weekly schedule.
type Schedule struct {
	ArmsRace []ScheduleSlot `json:"arms_race"`
	VsDuel   []VsDuelEntry  `json:"vs_duel"`
}

// ArmsRaceRows returns the Arms Race rows of a day.
func (s Schedule) ArmsRaceRows(day time.Weekday) []ScheduleSlot {
	var out []ScheduleSlot
	for _, r := range s.ArmsRace {
		if r.Day == day {
			out = append(out, r)
		}
	}
	return out
}

// VsRows returns the VS Duel rows of a day.
func (s Schedule) VsRows(day time.Weekday) []VsDuelEntry {
	var out []VsDuelEntry
	for _, r := range s.VsDuel {
		if r.Day == day {
			out = append(out, r)
		}
	}
	return out
}

// Upsert replaces the Arms Race row keyed by (day, slot), or appends it.
func (s *Schedule) Upsert(row ScheduleSlot) {
	for i := range s.ArmsRace {
		if s.ArmsRace[i].Day == row.Day && s.ArmsRace[i].Slot == row.Slot {
			s.ArmsRace[i] = row
			return
		}
	}
	s.ArmsRace = append(s.ArmsRace, row)
}

// Frequency of a special event.
type Frequency string

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
)

// SpecialEvent is a recurring event keyed by Name. Start and End are
// wall-clock "HH:MM" values in the server frame; End <= Start wraps past midnight.
type SpecialEvent struct {
	Name      string         `json:"name"`
	Days      []time.Weekday `json:"days"`
	Frequency Frequency      `json:"frequency"`
	RefParity int            `json:"ref_parity"`
	Start     string         `json:"start"`
	End       string         `json:"end"`
	IsDefault bool           `json:"is_default,omitempty"`
}

// OnDay reports whether d is one of the event's days.
func (e SpecialEvent) OnDay(d time.Weekday) bool {
	for _, x := range e.Days {
		if x == d {
			return true
		}
	}
	return false
}

// Rarity of a daily task activation.
type Rarity string

const (
	RarityN   Rarity = "N"
	RarityR   Rarity = "R"
	RaritySR  Rarity = "SR"
	RaritySSR Rarity = "SSR"
	RarityUR  Rarity = "UR"
)

// Rarities lists rarities in ascending order.
var Rarities = []Rarity{RarityN, RarityR, RaritySR, RaritySSR, RarityUR}

// ParseRarity accepts any casing of a known rarity.
func ParseRarity(s string) (Rarity, bool) {
	r := Rarity(strings.ToUpper(strings.TrimSpace(s)))
	for _, k := range Rarities {
		if k == r {
			return r, true
		}
	}
	return "", false
}

// MaxTaskMinutes caps a single rarity duration.
const MaxTaskMinutes = 360

// TaskTemplate describes an activatable daily task.
type TaskTemplate struct {
	Name      string         `json:"name" yaml:"name"`
	Durations map[Rarity]int `json:"durations" yaml:"durations"`
	MaxDaily  int            `json:"max_daily" yaml:"max_daily"`
	Category  string         `json:"category,omitempty" yaml:"category"`
	Color     string         `json:"color,omitempty" yaml:"color"`
	Icon      string         `json:"icon,omitempty" yaml:"icon"`
	IsDefault bool           `json:"is_default" yaml:"is_default"`
}

// RarityDuration pairs a rarity with its duration in minutes.
type RarityDuration struct {
	Rarity  Rarity
	Minutes int
}

// Available returns rarities with a positive duration, ascending.
func (t TaskTemplate) Available() []RarityDuration {
	var out []RarityDuration
	for _, r := range Rarities {
		if m := t.Durations[r]; m > 0 {
			out = append(out, RarityDuration{Rarity: r, Minutes: m})
		}
	}
	return out
}

// Validate enforces the write-boundary invariants of a template.
func (t TaskTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name required")
	}
	if t.MaxDaily < 1 {
		return fmt.Errorf("template %q: max_daily must be >= 1", t.Name)
	}
	positive := false
	for r, m := range t.Durations {
		if _, ok := ParseRarity(string(r)); !ok {
			return fmt.Errorf("template %q: unknown rarity %q", t.Name, r)
		}
		if m < 0 || m > MaxTaskMinutes {
			return fmt.Errorf("template %q: %s duration %d out of range 0..%d", t.Name, r, m, MaxTaskMinutes)
		}
		if m > 0 {
			positive = true
		}
	}
	if !positive {
		return fmt.Errorf("template %q: at least one rarity duration must be > 0", t.Name)
	}
	return nil
}

// InstanceStatus tracks an activation through its lifecycle.
type InstanceStatus string

const (
	StatusActive    InstanceStatus = "active"
	StatusExpired   InstanceStatus = "expired"
	StatusCompleted InstanceStatus = "completed"
)

// ActiveTaskInstance is one activation of a template. End = Start + Duration.
type ActiveTaskInstance struct {
	TaskID          string         `json:"task_id"`
	TaskName        string         `json:"task_name"`
	StartUTC        time.Time      `json:"start_utc"`
	EndUTC          time.Time      `json:"end_utc"`
	DurationMinutes int            `json:"duration_minutes"`
	Status          InstanceStatus `json:"status"`
}

// SecretaryKind names one of the five secretary roles.
type SecretaryKind string

const (
	SecretaryStrategy    SecretaryKind = "Secretary of Strategy"
	SecretaryDefense     SecretaryKind = "Secretary of Defense"
	SecretaryDevelopment SecretaryKind = "Secretary of Development"
	SecretaryScience     SecretaryKind = "Secretary of Science"
	SecretaryInterior    SecretaryKind = "Secretary of Interior"
)

// SecretaryBuffDuration is the length of one secretary hold.
const SecretaryBuffDuration = 5 * time.Minute

// SecretaryBuff is the singleton secretary hold. End = Start + 5m.
type SecretaryBuff struct {
	Kind     SecretaryKind `json:"type"`
	StartUTC time.Time     `json:"start_utc"`
	EndUTC   time.Time     `json:"end_utc"`
}

// SlotSwap is the singleton per-game-day swap of two Arms Race slots.
// GameDate is the server-frame game date ("2006-01-02") it was armed on.
type SlotSwap struct {
	GameDate string `json:"game_date"`
	FromSlot int    `json:"from_slot"`
	ToSlot   int    `json:"to_slot"`
}

// GameDateLayout formats SlotSwap.GameDate.
const GameDateLayout = "2006-01-02"

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}
