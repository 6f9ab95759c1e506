package export

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raceplan/internal/gametime"
	"raceplan/internal/model"
	"raceplan/internal/plan"
	"raceplan/internal/recurrence"
)

func TestWriteCalendar(t *testing.T) {
	t.Parallel()
	loc, err := gametime.ParseOffset("UTC-2")
	require.NoError(t, err)
	r := gametime.New(loc, 0)
	now := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
	cur := r.Resolve(now)

	var p plan.Plan
	for i := range p.Rows {
		p.Rows[i] = plan.Row{Slot: r.Resolve(cur.Start.Add(time.Duration(i) * model.SlotWidth)), Event: model.NoEvent}
	}
	p.Rows[0].Event = "Hero Development"
	p.Rows[0].Task = "Use Hero EXP"
	p.Rows[0].Double = true
	p.Rows[0].Matched = []string{"Train Heroes"}
	p.Rows[1].Event = "Unit Progression"

	occ := []recurrence.Occurrence{{
		Name:  "Desert Storm",
		Start: time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 6, 2, 30, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p, occ, now))

	cal, err := ical.ParseCalendar(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, "slot-2025-06-03-3@raceplan", first.GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Arms Race: Hero Development (x2)", first.GetProperty(ical.ComponentPropertySummary).Value)
	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)))

	last := events[2]
	assert.Equal(t, "Desert Storm", last.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Contains(t, last.GetProperty(ical.ComponentPropertyUniqueId).Value, "event-desert-storm-")
}

func TestSlug(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "capital-clash", slug("Capital Clash!"))
	assert.Equal(t, "doom-elite-rally", slug("  Doom  Elite / Rally "))
}
