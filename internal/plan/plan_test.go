package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceplan/internal/gametime"
	"raceplan/internal/model"
	"raceplan/internal/override"
)

var server = time.FixedZone("UTC-2", -2*3600)

// Tuesday 2025-06-03 09:00 server, slot 3.
var now = time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)

func schedule() model.Schedule {
	var s model.Schedule
	tue := []string{"Base Expansion", "Tech Advancement", "Hero Development", "Unit Progression", "Drone Boost", "All-Rounder"}
	for i, ev := range tue {
		s.Upsert(model.ScheduleSlot{Day: time.Tuesday, Slot: i + 1, Event: ev, Task: ev + " tasks"})
	}
	s.Upsert(model.ScheduleSlot{Day: time.Wednesday, Slot: 1, Event: "Drone Boost"})
	s.VsDuel = []model.VsDuelEntry{
		{Day: time.Tuesday, Event: "Hero Recruitment", Task: "Hero Shard"},
		{Day: time.Wednesday, Event: "Shopping Spree", Task: "Spend gems"},
	}
	return s
}

func input() Input {
	return Input{
		Now:      now,
		Resolver: gametime.New(server, 0),
		Schedule: schedule(),
	}
}

func TestBuildRows(t *testing.T) {
	t.Parallel()
	p := Build(input())

	assert.Equal(t, 3, p.Current.Index)
	assert.Equal(t, time.Tuesday, p.Current.Day)
	assert.Equal(t, 3*time.Hour, p.SlotEndsIn)
	assert.Equal(t, 15*time.Hour, p.UntilReset)

	rows := p.Rows
	assert.True(t, rows[0].Current)
	assert.Equal(t, "Hero Development", rows[0].Event)
	assert.True(t, rows[0].Double)
	assert.Equal(t, []string{"Hero Recruitment"}, rows[0].Matched)
	assert.Equal(t, "double", rows[0].Highlight())

	assert.Equal(t, 6, rows[3].Slot.Index)
	// All-Rounder carries "Hero".
	assert.True(t, rows[3].Double)

	// Rows 4 and 5 cross into Wednesday.
	assert.Equal(t, time.Wednesday, rows[4].Slot.Day)
	assert.Equal(t, 1, rows[4].Slot.Index)
	assert.Equal(t, "Drone Boost", rows[4].Event)
	assert.False(t, rows[4].Double)
	assert.Equal(t, model.NoEvent, rows[5].Event)

	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].Slot.Start.Equal(rows[i-1].Slot.End))
	}
}

func TestBuildScans(t *testing.T) {
	t.Parallel()
	p := Build(input())
	require.NotNil(t, p.NextDouble)
	assert.Equal(t, "Hero Development", p.NextDouble.Event)
	assert.Equal(t, "NOW", p.NextDouble.Starts)

	require.NotNil(t, p.NextDrone)
	assert.Equal(t, 5, p.NextDrone.Slot.Index)
	assert.Equal(t, "in 7h", p.NextDrone.Starts)

	in := input()
	in.Lookahead = 1
	in.Schedule.VsDuel = nil
	p = Build(in)
	assert.Nil(t, p.NextDouble)
	assert.Nil(t, p.NextDrone)
}

func TestBuildAppliesSwap(t *testing.T) {
	t.Parallel()
	in := input()
	in.Swap = &model.SlotSwap{GameDate: "2025-06-03", FromSlot: 3, ToSlot: 5}
	p := Build(in)

	assert.Equal(t, "Drone Boost", p.Rows[0].Event)
	assert.True(t, p.Rows[0].Swapped)
	assert.False(t, p.Rows[0].Double)
	assert.Equal(t, "Hero Development", p.Rows[2].Event)
	assert.True(t, p.Rows[2].Double)
	assert.False(t, p.Rows[1].Swapped)
	require.NotNil(t, p.Swap)

	// A swap from yesterday is ignored.
	in.Swap = &model.SlotSwap{GameDate: "2025-06-02", FromSlot: 3, ToSlot: 5}
	p = Build(in)
	assert.Equal(t, "Hero Development", p.Rows[0].Event)
	assert.Nil(t, p.Swap)
}

func TestBuildSpecialEventsAndTasks(t *testing.T) {
	t.Parallel()
	in := input()
	in.Events = []model.SpecialEvent{
		{Name: "Night Raid", Days: []time.Weekday{time.Tuesday}, Frequency: model.Weekly, Start: "22:00", End: "02:00"},
		{Name: "Broken", Days: []time.Weekday{time.Tuesday}, Frequency: model.Weekly, Start: "xx", End: "02:00"},
	}
	start := now.Add(-30 * time.Minute)
	in.Instances = []model.ActiveTaskInstance{
		{TaskID: "1", TaskName: "Squad (UR)", StartUTC: start, EndUTC: start.Add(2 * time.Hour)},
		{TaskID: "2", TaskName: "Squad (SSR)", StartUTC: start, EndUTC: start.Add(6 * time.Hour)},
	}
	p := Build(in)

	assert.Empty(t, p.Rows[0].SpecialEvents)
	assert.Empty(t, p.Rows[2].SpecialEvents)
	assert.Equal(t, []string{"Night Raid"}, p.Rows[3].SpecialEvents) // 20:00 window
	assert.Empty(t, p.Rows[4].SpecialEvents) // Wednesday is not an event day
	assert.Empty(t, p.Rows[5].SpecialEvents)
	assert.Len(t, p.Skipped, 1)

	assert.Equal(t, []string{"Squad (UR, SSR)"}, p.Rows[0].ActiveTasks)
	assert.Equal(t, []string{"Squad (UR)"}, p.Rows[0].EndingTasks)
	assert.Equal(t, "both", p.Rows[0].Highlight())
	assert.Equal(t, []string{"Squad (SSR)"}, p.Rows[1].ActiveTasks)
	assert.Equal(t, []string{"Squad (SSR)"}, p.Rows[1].EndingTasks)
	assert.Equal(t, "ending", p.Rows[1].Highlight())
	assert.Empty(t, p.Rows[2].ActiveTasks)
}

func TestBuildSecretaryScenario(t *testing.T) {
	t.Parallel()
	buff := override.NewBuff(model.SecretaryScience, now.Add(10*time.Minute))
	in := input()
	in.Buff = &buff

	p := Build(in)
	assert.Equal(t, override.Scheduled, p.Secretary.Phase)
	assert.Equal(t, "starts in 10m", p.Secretary.Label)
	assert.Equal(t, "🔬", p.Secretary.Icon)
	assert.True(t, p.Rows[0].Secretary)
	assert.False(t, p.Rows[1].Secretary)

	in.Now = now.Add(11 * time.Minute)
	p = Build(in)
	assert.Equal(t, override.Active, p.Secretary.Phase)
	assert.Equal(t, "ends in 4m", p.Secretary.Label)

	in.Now = now.Add(16 * time.Minute)
	p = Build(in)
	assert.Equal(t, override.Idle, p.Secretary.Phase)
	assert.True(t, p.Secretary.Lapsed)
	assert.Empty(t, p.Secretary.Label)
	assert.False(t, p.Rows[0].Secretary)
}
