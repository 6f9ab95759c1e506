package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceplan/internal/gametime"
	"raceplan/internal/ledger"
	"raceplan/internal/model"
	"raceplan/internal/override"
	"raceplan/internal/plan"
	"raceplan/internal/recurrence"
)

func serverLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := gametime.ParseOffset("UTC-2")
	require.NoError(t, err)
	return loc
}

func samplePlan(t *testing.T) plan.Plan {
	t.Helper()
	loc := serverLoc(t)
	r := gametime.New(loc, 0)
	now := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
	cur := r.Resolve(now)

	var rows [model.SlotCount]plan.Row
	for i := range rows {
		slot := r.Resolve(cur.Start.Add(time.Duration(i) * model.SlotWidth))
		rows[i] = plan.Row{Slot: slot, Current: i == 0, Event: model.NoEvent}
	}
	rows[0].Event = "Hero Development"
	rows[0].Double = true
	rows[0].Matched = []string{"Hero"}
	rows[1].Event = "Unit Progression"
	rows[1].EndingTasks = []string{"Truck Escort (UR)"}
	rows[2].SpecialEvents = []string{"Desert Storm"}

	return plan.Plan{
		Now:        now,
		Current:    cur,
		Rows:       rows,
		NextReset:  r.NextReset(now),
		UntilReset: r.NextReset(now).Sub(now),
		SlotEndsIn: cur.End.Sub(now),
		NextDouble: &plan.Upcoming{Slot: cur, Event: "Hero Development", Matched: []string{"Hero"}, Starts: "NOW"},
		Skipped:    []error{errors.New("Broken: invalid time of day")},
	}
}

func TestPlainPlan(t *testing.T) {
	var buf bytes.Buffer
	Plain(serverLoc(t)).Plan(&buf, samplePlan(t))
	out := buf.String()

	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Tuesday 2025-06-03 slot 3")
	assert.Contains(t, out, "Next double: Hero Development (Hero) NOW")
	assert.Contains(t, out, "> Tue 08:00-12:00  #3  Hero Development  [x2 Hero]")
	assert.Contains(t, out, "ending: Truck Escort (UR)")
	assert.Contains(t, out, "events: Desert Storm")
	assert.Contains(t, out, "skipped: Broken")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Greater(t, len(lines), model.SlotCount)
}

func TestTerminalPlanColors(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	Terminal(serverLoc(t)).Plan(&buf, samplePlan(t))
	out := buf.String()
	assert.Contains(t, out, color.New(styleDouble...).Sprint("Hero Development"))
	assert.Contains(t, out, color.New(styleEnding...).Sprint("Unit Progression"))
}

func TestTemplatesAndTasks(t *testing.T) {
	now := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
	tpls := []model.TaskTemplate{
		{Name: "Truck Escort", Icon: "🚚", MaxDaily: 4, IsDefault: true,
			Durations: map[model.Rarity]int{model.RarityUR: 240, model.RaritySSR: 120}},
		{Name: "Mine", MaxDaily: 1, Durations: map[model.Rarity]int{model.RarityN: 30}},
	}
	var buf bytes.Buffer
	p := Plain(time.UTC)
	p.Templates(&buf, tpls, []ledger.Quota{{Used: 1, Max: 4}, {Used: 1, Max: 1}})
	out := buf.String()
	assert.Contains(t, out, "🚚 Truck Escort:")
	assert.Contains(t, out, "1/4 used")
	assert.Contains(t, out, "Mine (custom)")

	buf.Reset()
	p.Tasks(&buf, nil, now)
	assert.Equal(t, "no active tasks\n", buf.String())

	buf.Reset()
	p.Tasks(&buf, []model.ActiveTaskInstance{{
		TaskID: "abc", TaskName: "Truck Escort (UR)", StartUTC: now, EndUTC: now.Add(90 * time.Minute),
	}}, now)
	assert.Contains(t, buf.String(), "abc  Truck Escort (UR)  ends 12:30")
}

func TestBuffSwapAndOccurrences(t *testing.T) {
	now := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
	p := Plain(time.UTC)

	var buf bytes.Buffer
	p.Buff(&buf, override.BuffStatus{}, now)
	assert.Equal(t, "secretary: idle\n", buf.String())

	b := override.NewBuff(model.SecretaryScience, now.Add(2*time.Minute))
	buf.Reset()
	p.Buff(&buf, override.ObserveBuff(&b, now), now)
	assert.Contains(t, buf.String(), "Secretary of Science scheduled (11:02-11:07")
	assert.Contains(t, buf.String(), "Research Speed +50%")

	buf.Reset()
	p.Swap(&buf, false, &model.SlotSwap{GameDate: "2025-06-03", FromSlot: 3, ToSlot: 5})
	assert.Equal(t, "swap armed: slots 3 <-> 5 for 2025-06-03\n", buf.String())

	buf.Reset()
	p.Occurrences(&buf, []recurrence.Occurrence{{
		Name: "Zombie Siege", Start: time.Date(2025, 6, 7, 20, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 7, 21, 0, 0, 0, time.UTC),
	}})
	assert.Equal(t, "Sat 2025-06-07 20:00-21:00  Zombie Siege\n", buf.String())

	buf.Reset()
	p.Roster(&buf)
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), len(model.Secretaries))
}
