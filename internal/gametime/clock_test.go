package gametime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceplan/internal/model"
)

func serverZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := ParseOffset("UTC-2")
	require.NoError(t, err)
	return loc
}

func TestResolveMidnightReset(t *testing.T) {
	t.Parallel()
	loc := serverZone(t)
	r := New(loc, 0)

	tests := []struct {
		name  string
		utc   time.Time
		day   time.Weekday
		slot  int
		start string
	}{
		// 2025-06-03 is a Tuesday.
		{name: "first instant of day", utc: time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC), day: time.Tuesday, slot: 1, start: "2025-06-03 00:00"},
		{name: "slot three", utc: time.Date(2025, 6, 3, 11, 30, 0, 0, time.UTC), day: time.Tuesday, slot: 3, start: "2025-06-03 08:00"},
		{name: "last minute of day", utc: time.Date(2025, 6, 4, 1, 59, 0, 0, time.UTC), day: time.Tuesday, slot: 6, start: "2025-06-03 20:00"},
		{name: "utc midnight is still previous server day", utc: time.Date(2025, 6, 4, 0, 30, 0, 0, time.UTC), day: time.Tuesday, slot: 6, start: "2025-06-03 20:00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := r.Resolve(tt.utc)
			assert.Equal(t, tt.day, got.Day)
			assert.Equal(t, tt.slot, got.Index)
			assert.Equal(t, tt.start, got.Start.Format("2006-01-02 15:04"))
			assert.True(t, got.Contains(tt.utc))
		})
	}
}

func TestResolveLegacyTwoAMReset(t *testing.T) {
	t.Parallel()
	r := New(serverZone(t), 2)

	// 01:30 server on Wednesday still belongs to Tuesday's game day, slot 6.
	at := time.Date(2025, 6, 4, 3, 30, 0, 0, time.UTC)
	got := r.Resolve(at)
	assert.Equal(t, time.Tuesday, got.Day)
	assert.Equal(t, 6, got.Index)
	assert.Equal(t, "2025-06-03", got.GameDate)
	assert.Equal(t, "2025-06-03 22:00", got.Start.Format("2006-01-02 15:04"))

	// 02:00 server starts Wednesday slot 1.
	got = r.Resolve(time.Date(2025, 6, 4, 4, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Wednesday, got.Day)
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, "02:00", got.Start.Format("15:04"))
}

func TestSlotCoverage(t *testing.T) {
	t.Parallel()
	for _, reset := range []int{0, 2, 5} {
		r := New(serverZone(t), reset)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for m := 0; m < 3*24*60; m += 7 {
			at := base.Add(time.Duration(m) * time.Minute)
			s := r.Resolve(at)
			require.GreaterOrEqual(t, s.Index, 1)
			require.LessOrEqual(t, s.Index, model.SlotCount)
			require.True(t, s.Contains(at), "reset=%d at=%s slot=%s", reset, at, s)
		}

		slots := r.DaySlots(base)
		assert.Equal(t, r.DayStart(base), slots[0].Start)
		for i := 1; i < len(slots); i++ {
			assert.Equal(t, slots[i-1].End, slots[i].Start, "slots must be contiguous")
		}
		assert.Equal(t, 24*time.Hour, slots[5].End.Sub(slots[0].Start))
	}
}

func TestNextResetAndGameDayStart(t *testing.T) {
	t.Parallel()
	r := New(serverZone(t), 0)
	at := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

	next := r.NextReset(at)
	assert.Equal(t, "2025-06-04 00:00", next.Format("2006-01-02 15:04"))

	start, err := r.GameDayStart("2025-06-03")
	require.NoError(t, err)
	assert.True(t, start.Equal(r.DayStart(at)))

	_, err = r.GameDayStart("yesterday")
	assert.Error(t, err)
}

func TestParseOffset(t *testing.T) {
	t.Parallel()
	ref := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		raw    string
		offset int
	}{
		{"UTC-2", -2 * 3600},
		{"utc+5", 5 * 3600},
		{"UTC+05:30", 5*3600 + 30*60},
		{"-02:00", -2 * 3600},
		{"UTC", 0},
		{"", 0},
	}
	for _, tt := range tests {
		loc, err := ParseOffset(tt.raw)
		require.NoError(t, err, tt.raw)
		_, off := ref.In(loc).Zone()
		assert.Equal(t, tt.offset, off, tt.raw)
	}

	_, err := ParseOffset("UTC+99")
	assert.Error(t, err)
	_, err = ParseOffset("Not/AZone")
	assert.Error(t, err)

	// Zones with DST transitions do not tile a day into six four-hour slots.
	for _, zone := range []string{"America/New_York", "Europe/Berlin", "Local"} {
		_, err = ParseOffset(zone)
		assert.Error(t, err, zone)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0m", FormatDuration(0))
	assert.Equal(t, "45m", FormatDuration(45*time.Minute))
	assert.Equal(t, "1h 30m", FormatDuration(90*time.Minute))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "2d 4h", FormatDuration(52*time.Hour))
	assert.Equal(t, "1d", FormatDuration(24*time.Hour))

	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "NOW", Countdown(now, now.Add(30*time.Second)))
	assert.Equal(t, "in 10m", Countdown(now, now.Add(10*time.Minute)))
}
