package override

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceplan/internal/gametime"
	"raceplan/internal/model"
)

var server = time.FixedZone("UTC-2", -2*3600)

// 2025-06-03 10:00 server (Tuesday, slot 3).
var now = time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

func TestBuffLifecycle(t *testing.T) {
	t.Parallel()
	b := NewBuff(model.SecretaryScience, now.Add(10*time.Minute))
	assert.Equal(t, 5*time.Minute, b.EndUTC.Sub(b.StartUTC))

	st := ObserveBuff(nil, now)
	assert.Equal(t, Idle, st.Phase)
	assert.False(t, st.Lapsed)

	st = ObserveBuff(&b, now)
	assert.Equal(t, Scheduled, st.Phase)
	assert.Equal(t, 10*time.Minute, st.Remaining(now))

	st = ObserveBuff(&b, now.Add(11*time.Minute))
	assert.Equal(t, Active, st.Phase)
	assert.Equal(t, 4*time.Minute, st.Remaining(now.Add(11*time.Minute)))

	st = ObserveBuff(&b, now.Add(15*time.Minute))
	assert.Equal(t, Idle, st.Phase, "end is exclusive")
	assert.True(t, st.Lapsed)
	assert.Nil(t, st.Buff)
}

func TestBuffStartModes(t *testing.T) {
	t.Parallel()
	at, err := StartAfterQueue(now, 3)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, at.Sub(now))

	_, err = StartAfterQueue(now, -1)
	assert.ErrorIs(t, err, ErrQueueLength)

	at, err = StartAtClock(now, "10:30", server)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, at.Sub(now))

	at, err = StartAtClock(now, "10:00", server)
	require.NoError(t, err)
	assert.True(t, at.Equal(now), "current minute is not rolled forward")

	at, err = StartAtClock(now, "09:00", server)
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour, at.Sub(now))

	_, err = StartAtClock(now, "9am", server)
	assert.Error(t, err)
}

func TestSwapValidation(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSlots(2, 5))
	assert.True(t, errors.Is(ValidateSlots(3, 3), ErrSwapSameSlot))
	assert.True(t, errors.Is(ValidateSlots(0, 3), ErrSwapSlotRange))
	assert.True(t, errors.Is(ValidateSlots(2, 7), ErrSwapSlotRange))
}

func TestSwapRoundTrip(t *testing.T) {
	t.Parallel()
	r := gametime.New(server, 0)
	sched := model.Schedule{}
	for i := 1; i <= model.SlotCount; i++ {
		sched.Upsert(model.ScheduleSlot{Day: time.Tuesday, Slot: i, Event: []string{"", "Base", "Tech", "Hero", "Unit", "Drone", "All-Rounder"}[i]})
	}
	sched.Upsert(model.ScheduleSlot{Day: time.Wednesday, Slot: 2, Event: "Tech"})

	swap, err := Arm(nil, r, now, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-03", swap.GameDate)

	today := r.Resolve(now)
	rows := DayRows(sched, &swap, today)
	bySlot := map[int]string{}
	for _, row := range rows {
		bySlot[row.Slot] = row.Event
	}
	assert.Equal(t, "Drone", bySlot[2])
	assert.Equal(t, "Tech", bySlot[5])
	assert.Equal(t, "Base", bySlot[1])
	assert.Len(t, rows, model.SlotCount)

	// Canonical schedule is untouched.
	assert.Equal(t, "Tech", sched.ArmsRaceRows(time.Tuesday)[1].Event)

	row, ok := Lookup(sched, &swap, gametime.Slot{Day: time.Tuesday, Index: 5, GameDate: "2025-06-03"})
	require.True(t, ok)
	assert.Equal(t, "Tech", row.Event)

	// Other game dates ignore the swap.
	tomorrow := r.Resolve(now.Add(24 * time.Hour))
	row, ok = Lookup(sched, &swap, gametime.Slot{Day: tomorrow.Day, Index: 2, GameDate: tomorrow.GameDate})
	require.True(t, ok)
	assert.Equal(t, "Tech", row.Event)

	// Second arm on the same day is rejected.
	_, err = Arm(&swap, r, now.Add(time.Hour), 1, 3)
	assert.ErrorIs(t, err, ErrSwapArmed)
	ok, stale := CanSwap(&swap, r, now.Add(13*time.Hour+59*time.Minute))
	assert.False(t, ok)
	assert.False(t, stale)

	// After the next reset (server midnight = 02:00 UTC) it is available again.
	reset := time.Date(2025, 6, 4, 2, 0, 0, 0, time.UTC)
	ok, stale = CanSwap(&swap, r, reset)
	assert.True(t, ok)
	assert.True(t, stale)
	next, err := Arm(&swap, r, reset, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-04", next.GameDate)
}

func TestSwapExpiredBadDate(t *testing.T) {
	t.Parallel()
	r := gametime.New(server, 0)
	assert.True(t, SwapExpired(&model.SlotSwap{GameDate: "garbage", FromSlot: 1, ToSlot: 2}, r, now))
	assert.True(t, SwapExpired(nil, r, now))
}

func TestApplyDoesNotMutate(t *testing.T) {
	t.Parallel()
	rows := []model.ScheduleSlot{{Slot: 1, Event: "A"}, {Slot: 2, Event: "B"}, {Slot: 3, Event: "C"}}
	out := Apply(rows, 1, 3)
	assert.Equal(t, 1, rows[0].Slot)
	assert.Equal(t, 3, out[0].Slot)
	assert.Equal(t, 2, out[1].Slot)
	assert.Equal(t, 1, out[2].Slot)
}
