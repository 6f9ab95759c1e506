// Package catalog holds the factory schedule, special events and task
// templates shipped with the binary.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"raceplan/internal/model"
	"raceplan/internal/recurrence"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Catalog is a decoded set of factory records.
type Catalog struct {
	Schedule  model.Schedule
	Events    []model.SpecialEvent
	Templates []model.TaskTemplate
}

type fileSchema struct {
	Schedule struct {
		ArmsRace []struct {
			Day    string `yaml:"day"`
			Slot   int    `yaml:"slot"`
			Event  string `yaml:"event"`
			Task   string `yaml:"task"`
			Points string `yaml:"points"`
		} `yaml:"arms_race"`
		VsDuel []struct {
			Day    string   `yaml:"day"`
			Event  string   `yaml:"event"`
			Task   string   `yaml:"task"`
			Points *float64 `yaml:"points"`
		} `yaml:"vs_duel"`
	} `yaml:"schedule"`
	Events []struct {
		Name      string   `yaml:"name"`
		Days      []string `yaml:"days"`
		Frequency string   `yaml:"frequency"`
		RefParity int      `yaml:"ref_parity"`
		Start     string   `yaml:"start"`
		End       string   `yaml:"end"`
	} `yaml:"events"`
	Templates []model.TaskTemplate `yaml:"templates"`
}

var (
	defaultsOnce sync.Once
	defaults     Catalog
	defaultsErr  error
)

// Defaults returns the embedded factory catalog. Callers receive copies.
func Defaults() (Catalog, error) {
	defaultsOnce.Do(func() {
		defaults, defaultsErr = Parse(defaultsYAML)
	})
	if defaultsErr != nil {
		return Catalog{}, defaultsErr
	}
	return defaults.clone(), nil
}

// Parse decodes and validates a catalog document. Every record it returns is
// marked as a factory default.
func Parse(data []byte) (Catalog, error) {
	var raw fileSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("catalog: %w", err)
	}

	var c Catalog
	seenSlot := map[[2]int]bool{}
	for i, r := range raw.Schedule.ArmsRace {
		day, ok := model.ParseWeekday(r.Day)
		if !ok {
			return Catalog{}, fmt.Errorf("catalog: arms_race[%d]: bad day %q", i, r.Day)
		}
		if r.Slot < 1 || r.Slot > model.SlotCount {
			return Catalog{}, fmt.Errorf("catalog: arms_race[%d]: slot %d out of range", i, r.Slot)
		}
		key := [2]int{int(day), r.Slot}
		if seenSlot[key] {
			return Catalog{}, fmt.Errorf("catalog: arms_race[%d]: duplicate %s slot %d", i, day, r.Slot)
		}
		seenSlot[key] = true
		c.Schedule.ArmsRace = append(c.Schedule.ArmsRace, model.ScheduleSlot{
			Day: day, Slot: r.Slot, Event: strings.TrimSpace(r.Event), Task: strings.TrimSpace(r.Task), Points: r.Points,
		})
	}
	for i, r := range raw.Schedule.VsDuel {
		day, ok := model.ParseWeekday(r.Day)
		if !ok {
			return Catalog{}, fmt.Errorf("catalog: vs_duel[%d]: bad day %q", i, r.Day)
		}
		c.Schedule.VsDuel = append(c.Schedule.VsDuel, model.VsDuelEntry{
			Day: day, Event: strings.TrimSpace(r.Event), Task: strings.TrimSpace(r.Task), Points: r.Points,
		})
	}

	seenEvent := map[string]bool{}
	for i, r := range raw.Events {
		ev := model.SpecialEvent{
			Name:      strings.TrimSpace(r.Name),
			Frequency: model.Frequency(strings.ToLower(strings.TrimSpace(r.Frequency))),
			RefParity: r.RefParity,
			Start:     r.Start,
			End:       r.End,
			IsDefault: true,
		}
		for _, d := range r.Days {
			wd, ok := model.ParseWeekday(d)
			if !ok {
				return Catalog{}, fmt.Errorf("catalog: events[%d]: bad day %q", i, d)
			}
			ev.Days = append(ev.Days, wd)
		}
		if err := recurrence.Validate(ev); err != nil {
			return Catalog{}, fmt.Errorf("catalog: events[%d]: %w", i, err)
		}
		if seenEvent[ev.Name] {
			return Catalog{}, fmt.Errorf("catalog: duplicate event %q", ev.Name)
		}
		seenEvent[ev.Name] = true
		c.Events = append(c.Events, ev)
	}

	seenTpl := map[string]bool{}
	for _, t := range raw.Templates {
		t.Name = strings.TrimSpace(t.Name)
		t.IsDefault = true
		if err := t.Validate(); err != nil {
			return Catalog{}, fmt.Errorf("catalog: %w", err)
		}
		if seenTpl[t.Name] {
			return Catalog{}, fmt.Errorf("catalog: duplicate template %q", t.Name)
		}
		seenTpl[t.Name] = true
		c.Templates = append(c.Templates, t)
	}
	return c, nil
}

// RestoreTemplates returns the factory templates followed by every user
// template in current. User templates shadowed by a factory name are dropped.
func RestoreTemplates(current, factory []model.TaskTemplate) []model.TaskTemplate {
	names := make(map[string]bool, len(factory))
	out := make([]model.TaskTemplate, 0, len(factory)+len(current))
	for _, t := range factory {
		t.IsDefault = true
		names[t.Name] = true
		out = append(out, t)
	}
	for _, t := range current {
		if t.IsDefault || names[t.Name] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// RestoreEvents is RestoreTemplates for special events.
func RestoreEvents(current, factory []model.SpecialEvent) []model.SpecialEvent {
	names := make(map[string]bool, len(factory))
	out := make([]model.SpecialEvent, 0, len(factory)+len(current))
	for _, e := range factory {
		e.IsDefault = true
		names[e.Name] = true
		out = append(out, e)
	}
	for _, e := range current {
		if e.IsDefault || names[e.Name] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (c Catalog) clone() Catalog {
	out := Catalog{
		Schedule: model.Schedule{
			ArmsRace: append([]model.ScheduleSlot(nil), c.Schedule.ArmsRace...),
			VsDuel:   append([]model.VsDuelEntry(nil), c.Schedule.VsDuel...),
		},
	}
	for _, e := range c.Events {
		e.Days = append([]time.Weekday(nil), e.Days...)
		out.Events = append(out.Events, e)
	}
	for _, t := range c.Templates {
		d := make(map[model.Rarity]int, len(t.Durations))
		for k, v := range t.Durations {
			d[k] = v
		}
		t.Durations = d
		out.Templates = append(out.Templates, t)
	}
	return out
}
