package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceplan/internal/gametime"
	"raceplan/internal/model"
	"raceplan/internal/plan"
	logx "raceplan/pkg/logx"
)

type fakePlanner struct {
	p     plan.Plan
	tasks []model.ActiveTaskInstance
	err   error
}

func (f fakePlanner) BuildPlan(context.Context, time.Time) (plan.Plan, error) { return f.p, f.err }

func (f fakePlanner) ActiveTasks(context.Context, time.Time) ([]model.ActiveTaskInstance, error) {
	return f.tasks, f.err
}

func samplePlan() plan.Plan {
	start := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	var p plan.Plan
	p.Now = start.Add(time.Hour)
	p.SlotEndsIn = 3 * time.Hour
	for i := range p.Rows {
		p.Rows[i] = plan.Row{
			Slot:  gametime.Slot{Day: time.Tuesday, Index: i + 1, GameDate: "2025-06-03", Start: start.Add(time.Duration(i) * model.SlotWidth), End: start.Add(time.Duration(i+1) * model.SlotWidth)},
			Event: model.NoEvent,
		}
	}
	p.Rows[0].Current = true
	p.Rows[0].Event = "Hero Development"
	p.Rows[0].Double = true
	p.Rows[0].Matched = []string{"Hero Recruitment"}
	p.Skipped = []error{errors.New("bad event")}
	return p
}

func TestPlanEndpoint(t *testing.T) {
	t.Parallel()
	srv := New(Config{}, fakePlanner{p: samplePlan()}, func() string { return "app running" }, logx.Nop())
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plan", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got planView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Rows, model.SlotCount)
	assert.Equal(t, "Hero Development", got.Rows[0].Event)
	assert.True(t, got.Rows[0].Double)
	assert.Equal(t, "Tuesday", got.Rows[0].Day)
	assert.Equal(t, []string{"bad event"}, got.Skipped)
	assert.Equal(t, "3h0m0s", got.SlotEndsIn)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/supervisors", nil))
	assert.Equal(t, "app running", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAuthAndErrors(t *testing.T) {
	t.Parallel()
	h := New(Config{Token: "s3cret"}, fakePlanner{err: errors.New("store closed")}, nil, logx.Nop()).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "healthz is open")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plan", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plan?token=nope", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/plan", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "store closed")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "pprof disabled")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	srv := New(Config{Addr: "127.0.0.1:0"}, fakePlanner{}, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
