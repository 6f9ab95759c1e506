package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "raceplan/pkg/logx"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "@every 1m", want: "@every 1m"},
		{in: "*/5 * * * *", want: "*/5 * * * *"},
		{in: "cron:@hourly", want: "@hourly"},
		{in: "30s", want: "@every 30s"},
		{in: "00:05", want: "@every 5m0s"},
		{in: "every: 2h30m", want: "@every 2h30m0s"},
		{in: "interval:01:00", want: "@every 1h0m0s"},
		{in: "", wantErr: true},
		{in: "0s", wantErr: true},
		{in: "00:75", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "every now and then", wantErr: true},
		{in: "cron:", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSchedule(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDailyAt(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC-2", -2*3600)
	sched, err := parser.Parse(DailyAt(2))
	require.NoError(t, err)
	from := time.Date(2025, 6, 3, 1, 0, 0, 0, loc)
	next := sched.Next(from)
	assert.True(t, next.Equal(time.Date(2025, 6, 3, 2, 0, 0, 0, loc)), next.String())
}

func TestAddAndJobs(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	noop := func(context.Context, time.Time) error { return nil }
	require.NoError(t, s.Add("sweep", "1m", 0, noop))
	require.NoError(t, s.Add("reset", DailyAt(0), 0, noop))
	assert.Error(t, s.Add("sweep", "1m", 0, noop))
	assert.Error(t, s.Add("bad", "whenever", 0, noop))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "reset", jobs[0].Name)
	assert.Equal(t, "@every 1m0s", jobs[1].Spec)
	assert.True(t, jobs[1].Next.IsZero(), "not started")

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())
	jobs = s.Jobs()
	assert.False(t, jobs[0].Next.IsZero())

	require.NoError(t, s.Reschedule("sweep", "@every 5m"))
	assert.Equal(t, "@every 5m", s.Jobs()[1].Spec)
	assert.Error(t, s.Reschedule("missing", "1m"))

	require.NoError(t, s.Relocate(time.FixedZone("UTC+3", 3*3600)))
	assert.False(t, s.Jobs()[0].Next.IsZero())
}

func TestFireSurvivesFailures(t *testing.T) {
	t.Parallel()
	s := New(nil, logx.Logger{})
	fixed := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	var got time.Time
	var deadline bool
	s.fire(&jobDef{name: "ok", timeout: time.Second, run: func(ctx context.Context, now time.Time) error {
		got = now
		_, deadline = ctx.Deadline()
		return nil
	}})
	assert.True(t, got.Equal(fixed))
	assert.True(t, deadline)

	assert.NotPanics(t, func() {
		s.fire(&jobDef{name: "panics", timeout: time.Second, run: func(context.Context, time.Time) error { panic("x") }})
		s.fire(&jobDef{name: "errs", timeout: time.Second, run: func(context.Context, time.Time) error { return errors.New("x") }})
	})
}
