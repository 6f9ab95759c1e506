package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceplan/internal/catalog"
	"raceplan/internal/eventbus"
	"raceplan/internal/gametime"
	"raceplan/internal/model"
	"raceplan/internal/override"
	"raceplan/internal/storage"
)

var server = time.FixedZone("UTC-2", -2*3600)

// Tuesday 2025-06-03 09:00 server, slot 3. The next reset is 2025-06-04 02:00 UTC.
var now = time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)

var nextReset = time.Date(2025, 6, 4, 2, 0, 0, 0, time.UTC)

type fixture struct {
	eng   *Engine
	store storage.Store
	bus   eventbus.Bus
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := storage.NewMemory()
	ctx := context.Background()

	var sched model.Schedule
	for i, ev := range []string{"Base Expansion", "Tech Advancement", "Hero Development", "Unit Progression", "Drone Boost", "All-Rounder"} {
		sched.Upsert(model.ScheduleSlot{Day: time.Tuesday, Slot: i + 1, Event: ev})
	}
	sched.VsDuel = []model.VsDuelEntry{{Day: time.Tuesday, Event: "Hero Recruitment", Task: "Hero Shard"}}
	require.NoError(t, st.SaveSchedule(ctx, sched))
	require.NoError(t, st.SaveTemplates(ctx, []model.TaskTemplate{
		{Name: "Squad", Durations: map[model.Rarity]int{model.RarityUR: 60, model.RaritySSR: 30}, MaxDaily: 2},
		{Name: "Secret Task", Durations: map[model.Rarity]int{model.RarityUR: 240}, MaxDaily: 1},
	}))

	seq := 0
	bus := eventbus.New()
	eng := New(st, Options{
		Resolver: gametime.New(server, 0),
		Bus:      bus,
		NewID: func() string {
			seq++
			return fmt.Sprintf("t%d", seq)
		},
	})
	return fixture{eng: eng, store: st, bus: bus}
}

func TestQuotaAcrossReset(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.eng.Activate(ctx, "Squad", "ur", now)
	require.NoError(t, err)
	assert.Equal(t, "Squad (UR)", a.TaskName)
	assert.Equal(t, time.Hour, a.EndUTC.Sub(a.StartUTC))
	_, err = f.eng.Activate(ctx, "squad", "SSR", now.Add(time.Minute))
	require.NoError(t, err)

	_, err = f.eng.Activate(ctx, "Squad", "UR", now.Add(2*time.Minute))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	var qe *QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 2, qe.Used)
	assert.Equal(t, 2, qe.Max)

	// Completing or expiring does not free quota.
	_, err = f.eng.Complete(ctx, a.TaskID, now.Add(3*time.Minute))
	require.NoError(t, err)
	q, err := f.eng.CanActivate(ctx, "Squad", now.Add(5*time.Hour))
	require.NoError(t, err)
	assert.False(t, q.Allowed())
	assert.Equal(t, 0, q.Remaining())

	active, err := f.eng.ActiveTasks(ctx, now.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, active)

	// Just before the reset the day is still used up.
	_, err = f.eng.Activate(ctx, "Squad", "UR", nextReset.Add(-time.Second))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	q, err = f.eng.CanActivate(ctx, "Squad", nextReset)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Used)
	_, err = f.eng.Activate(ctx, "Squad", "UR", nextReset)
	assert.NoError(t, err)
}

func TestActivateErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Activate(ctx, "Truck", "UR", now)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	_, err = f.eng.Activate(ctx, "Squad", "", now)
	assert.ErrorIs(t, err, ErrUnknownRarity)
	_, err = f.eng.Activate(ctx, "Squad", "N", now)
	assert.ErrorIs(t, err, ErrUnknownRarity)

	// Single-rarity templates need no rarity and keep the bare name.
	inst, err := f.eng.Activate(ctx, "Secret Task", "", now)
	require.NoError(t, err)
	assert.Equal(t, "Secret Task", inst.TaskName)
	assert.Equal(t, "t1", inst.TaskID)

	_, err = f.eng.Complete(ctx, "nope", now)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSweepAndHistoryPrune(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	events, unsub := f.bus.Subscribe(16)
	defer unsub()

	_, err := f.eng.Activate(ctx, "Squad", "SSR", now)
	require.NoError(t, err)
	n, err := f.eng.SweepExpired(ctx, now.Add(29*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.eng.SweepExpired(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.eng.SweepExpired(ctx, now.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n, "sweep is idempotent")

	hist, err := f.store.LoadInstanceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.StatusExpired, hist[0].Status)

	assert.Equal(t, eventbus.TaskActivated, (<-events).Type)
	assert.Equal(t, eventbus.TasksSwept, (<-events).Type)

	// Two resets later the record is pruned on the next write.
	later := nextReset.Add(24 * time.Hour)
	_, err = f.eng.Activate(ctx, "Secret Task", "", later)
	require.NoError(t, err)
	_, err = f.eng.SweepExpired(ctx, later.Add(5*time.Hour))
	require.NoError(t, err)
	hist, err = f.store.LoadInstanceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "Secret Task", hist[0].TaskName)
}

func TestSlotSwapRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	ok, cur, err := f.eng.CanSwapToday(ctx, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, cur)

	sw, err := f.eng.ArmSlotSwap(ctx, 3, 5, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-03", sw.GameDate)

	p, err := f.eng.BuildPlan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "Drone Boost", p.Rows[0].Event)
	assert.True(t, p.Rows[0].Swapped)
	assert.Equal(t, "Hero Development", p.Rows[2].Event)
	assert.Equal(t, 5, p.Rows[2].Slot.Index)

	// The stored schedule is untouched.
	sched, err := f.eng.Schedule(ctx)
	require.NoError(t, err)
	row, found := override.Lookup(sched, nil, p.Rows[0].Slot)
	require.True(t, found)
	assert.Equal(t, "Hero Development", row.Event)

	_, err = f.eng.ArmSlotSwap(ctx, 1, 2, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrSwapArmed)
	_, err = f.eng.ArmSlotSwap(ctx, 4, 4, now)
	assert.ErrorIs(t, err, ErrSwapSameSlot)

	ok, cur, err = f.eng.CanSwapToday(ctx, nextReset.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, cur)

	ok, _, err = f.eng.CanSwapToday(ctx, nextReset)
	require.NoError(t, err)
	assert.True(t, ok)
	stored, err := f.store.LoadSlotSwap(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored, "stale swap deleted")

	_, err = f.eng.ArmSlotSwap(ctx, 1, 2, nextReset)
	require.NoError(t, err)
	require.NoError(t, f.eng.ClearSlotSwap(ctx, nextReset))
	ok, _, err = f.eng.CanSwapToday(ctx, nextReset)
	require.NoError(t, err)
	assert.True(t, ok)

	// Clearing re-arms the same game day.
	sw, err = f.eng.ArmSlotSwap(ctx, 2, 6, nextReset.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, sw.FromSlot)
}

func TestClassifyOverlapHero(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	slot := f.eng.ResolveSlot(now)
	assert.Equal(t, time.Tuesday, slot.Day)
	assert.Equal(t, 3, slot.Index)

	res := f.eng.ClassifyOverlap(
		model.ScheduleSlot{Day: time.Tuesday, Slot: 3, Event: "Hero Development"},
		[]model.VsDuelEntry{{Day: time.Tuesday, Event: "Hero Recruitment", Task: "Hero Shard"}},
	)
	assert.True(t, res.Double)
	assert.Equal(t, []string{"Hero Recruitment"}, res.Matched)
}

func TestSecretaryScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.SetSecretaryBuff(ctx, "Mayor", now, now)
	assert.ErrorIs(t, err, ErrUnknownSecretary)

	start, err := f.eng.ParseBuffStart("10m", now)
	require.NoError(t, err)
	_, err = f.eng.SetSecretaryBuff(ctx, "science", start, now)
	require.NoError(t, err)

	p, err := f.eng.BuildPlan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, override.Scheduled, p.Secretary.Phase)
	assert.Equal(t, "starts in 10m", p.Secretary.Label)
	assert.True(t, p.Rows[0].Secretary)

	p, err = f.eng.BuildPlan(ctx, now.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, override.Active, p.Secretary.Phase)
	assert.Equal(t, model.SecretaryScience, p.Secretary.Kind)

	p, err = f.eng.BuildPlan(ctx, now.Add(16*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, override.Idle, p.Secretary.Phase)
	stored, err := f.store.LoadSecretaryBuff(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored, "lapsed buff cleared")

	// A new buff overwrites the old one.
	_, err = f.eng.SetSecretaryBuff(ctx, "Secretary of Defense", now, now)
	require.NoError(t, err)
	_, err = f.eng.SetSecretaryBuff(ctx, "interior", now.Add(time.Minute), now)
	require.NoError(t, err)
	st, err := f.eng.SecretaryStatus(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, st.Buff)
	assert.Equal(t, model.SecretaryInterior, st.Buff.Kind)

	require.NoError(t, f.eng.ClearSecretaryBuff(ctx, now))
	st, err = f.eng.SecretaryStatus(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, override.Idle, st.Phase)
}

func TestParseBuffStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"now", 0},
		{"10m", 10 * time.Minute},
		{"+1h", time.Hour},
		{"q3", 15 * time.Minute},
		{"09:30", 30 * time.Minute},
	}
	for _, tc := range cases {
		got, err := f.eng.ParseBuffStart(tc.in, now)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.Sub(now), tc.in)
	}
	for _, bad := range []string{"soon", "q-1", "-5m", "25:00"} {
		_, err := f.eng.ParseBuffStart(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestSeedAndRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	factory := catalog.Catalog{
		Templates: []model.TaskTemplate{{Name: "Truck Escort", Durations: map[model.Rarity]int{model.RarityUR: 120}, MaxDaily: 4, IsDefault: true}},
		Events:    []model.SpecialEvent{{Name: "Zombie Siege", Days: []time.Weekday{time.Saturday}, Frequency: model.Weekly, Start: "20:00", End: "21:00", IsDefault: true}},
	}
	factory.Schedule.Upsert(model.ScheduleSlot{Day: time.Monday, Slot: 1, Event: "Base Expansion"})

	st := storage.NewMemory()
	eng := New(st, Options{Resolver: gametime.New(server, 0), Factory: &factory})
	seeded, err := eng.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)
	seeded, err = eng.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	require.NoError(t, eng.UpsertTemplate(ctx, model.TaskTemplate{Name: "Mine", Durations: map[model.Rarity]int{model.RarityR: 10}, MaxDaily: 1}))
	require.NoError(t, eng.UpsertTemplate(ctx, model.TaskTemplate{Name: "Truck Escort", Durations: map[model.Rarity]int{model.RarityUR: 5}, MaxDaily: 9, IsDefault: true}))
	err = eng.UpsertTemplate(ctx, model.TaskTemplate{Name: "Broken", MaxDaily: 1})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	tpls, err := eng.RestoreDefaultTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, tpls, 2)
	assert.Equal(t, 4, tpls[0].MaxDaily)
	assert.Equal(t, "Mine", tpls[1].Name)

	require.NoError(t, eng.UpsertSpecialEvent(ctx, model.SpecialEvent{Name: "Guild Meet", Days: []time.Weekday{time.Sunday}, Frequency: model.Weekly, Start: "18:00", End: "19:00"}))
	err = eng.UpsertSpecialEvent(ctx, model.SpecialEvent{Name: "Bad", Days: []time.Weekday{time.Sunday}, Frequency: model.Weekly, Start: "6pm", End: "19:00"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	events, err := eng.RestoreDefaultEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Zombie Siege", events[0].Name)

	require.NoError(t, eng.SetArmsRaceSlot(ctx, model.ScheduleSlot{Day: time.Monday, Slot: 1, Event: "Tech Advancement"}))
	assert.ErrorIs(t, eng.SetArmsRaceSlot(ctx, model.ScheduleSlot{Day: time.Monday, Slot: 7, Event: "X"}), ErrInvalidRecord)
	sched, err := eng.Schedule(ctx)
	require.NoError(t, err)
	require.Len(t, sched.ArmsRace, 1)
	assert.Equal(t, "Tech Advancement", sched.ArmsRace[0].Event)
}

func TestUpcomingEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveSpecialEvents(ctx, []model.SpecialEvent{
		{Name: "Zombie Siege", Days: []time.Weekday{time.Saturday}, Frequency: model.Weekly, Start: "20:00", End: "21:00"},
		{Name: "Broken", Days: []time.Weekday{time.Saturday}, Frequency: model.Weekly, Start: "late", End: "21:00"},
	}))
	occ, err := f.eng.UpcomingEvents(ctx, now, now.Add(7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, "Zombie Siege", occ[0].Name)
	assert.True(t, occ[0].Start.Equal(time.Date(2025, 6, 7, 22, 0, 0, 0, time.UTC)))
}

func TestResetTickPublishes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ch, unsub := f.bus.Subscribe(4)
	defer unsub()
	require.NoError(t, f.eng.ResetTick(context.Background(), nextReset))
	ev := <-ch
	assert.Equal(t, eventbus.GameReset, ev.Type)
	slot, ok := ev.Data.(gametime.Slot)
	require.True(t, ok)
	assert.Equal(t, "2025-06-04", slot.GameDate)
}
