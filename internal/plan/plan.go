// Package plan composes the clock, recurrence, overlap, ledger and override
// pieces into a forward-looking view of the next six slots.
package plan

import (
	"time"

	"raceplan/internal/gametime"
	"raceplan/internal/ledger"
	"raceplan/internal/model"
	"raceplan/internal/overlap"
	"raceplan/internal/override"
	"raceplan/internal/recurrence"
)

// DefaultLookahead is how many slots the next-double and next-drone scans cover.
const DefaultLookahead = 48

// Input is a snapshot of everything a plan is built from. Instances should
// already be swept; Build does not mutate any of it.
type Input struct {
	Now        time.Time
	Resolver   gametime.Resolver
	Classifier *overlap.Classifier
	Schedule   model.Schedule
	Events     []model.SpecialEvent
	Instances  []model.ActiveTaskInstance
	Swap       *model.SlotSwap
	Buff       *model.SecretaryBuff
	Lookahead  int
}

// Row is one slot of the plan.
type Row struct {
	Slot          gametime.Slot
	Current       bool
	Event         string // model.NoEvent when the schedule has no row
	Task          string
	Points        string
	Swapped       bool
	Double        bool
	Matched       []string
	SpecialEvents []string
	ActiveTasks   []string
	EndingTasks   []string
	Secretary     bool
}

// Highlight classifies a row for display: "both", "double", "ending" or "".
func (r Row) Highlight() string {
	switch {
	case r.Double && len(r.EndingTasks) > 0:
		return "both"
	case r.Double:
		return "double"
	case len(r.EndingTasks) > 0:
		return "ending"
	}
	return ""
}

// Upcoming marks the first slot in the lookahead that satisfies a scan.
type Upcoming struct {
	Slot    gametime.Slot
	Event   string
	Matched []string
	Starts  string // "NOW" or "in 3h 20m"
}

// Secretary is the buff as seen by the plan.
type Secretary struct {
	Phase override.Phase
	Kind  model.SecretaryKind
	Icon  string
	Start time.Time
	End   time.Time
	Label string // "starts in 10m", "ends in 4m" or ""
	// Lapsed reports a stored buff past its end; the owner must clear it.
	Lapsed bool
}

// Plan is the 24-hour view starting at the current slot.
type Plan struct {
	Now        time.Time
	Current    gametime.Slot
	Rows       [model.SlotCount]Row
	NextReset  time.Time
	UntilReset time.Duration
	SlotEndsIn time.Duration
	NextDouble *Upcoming
	NextDrone  *Upcoming
	Secretary  Secretary
	Swap       *model.SlotSwap
	// Skipped holds special events that could not be evaluated.
	Skipped []error
}

// Build computes the plan. It is a pure function of in.
func Build(in Input) Plan {
	if in.Classifier == nil {
		in.Classifier = overlap.New(nil)
	}
	now := in.Now
	cur := in.Resolver.Resolve(now)

	p := Plan{
		Now:        now,
		Current:    cur,
		NextReset:  in.Resolver.NextReset(now),
		SlotEndsIn: cur.End.Sub(in.Resolver.ServerTime(now)),
		Secretary:  secretaryView(in.Buff, now),
	}
	p.UntilReset = p.NextReset.Sub(now)
	if in.Swap != nil && !override.SwapExpired(in.Swap, in.Resolver, now) {
		p.Swap = in.Swap
	}

	skipped := map[string]bool{}
	for i := range p.Rows {
		slot := in.Resolver.Resolve(cur.Start.Add(time.Duration(i) * model.SlotWidth))
		row := Row{Slot: slot, Current: i == 0}
		fillArmsRace(&row, in, p.Swap)

		for _, ev := range in.Events {
			ok, err := recurrence.Active(ev, slot.Start)
			if err != nil {
				if !skipped[ev.Name] {
					skipped[ev.Name] = true
					p.Skipped = append(p.Skipped, err)
				}
				continue
			}
			if ok {
				row.SpecialEvents = append(row.SpecialEvents, ev.Name)
			}
		}

		row.ActiveTasks = ledger.Labels(ledger.Overlapping(in.Instances, slot.Start, slot.End))
		row.EndingTasks = ledger.Labels(ledger.EndingWithin(in.Instances, slot.Start, slot.End))
		if b := p.Secretary; b.Phase != override.Idle {
			row.Secretary = b.Start.Before(slot.End) && b.End.After(slot.Start)
		}
		p.Rows[i] = row
	}

	p.NextDouble, p.NextDrone = scan(in, cur, p.Swap)
	return p
}

func fillArmsRace(row *Row, in Input, swap *model.SlotSwap) {
	row.Event = model.NoEvent
	ar, ok := override.Lookup(in.Schedule, swap, row.Slot)
	if !ok || ar.Event == "" {
		return
	}
	row.Event, row.Task, row.Points = ar.Event, ar.Task, ar.Points
	row.Swapped = swap != nil && swap.GameDate == row.Slot.GameDate &&
		(row.Slot.Index == swap.FromSlot || row.Slot.Index == swap.ToSlot)
	res := in.Classifier.Classify(ar.Event, ar.Task, in.Schedule.VsRows(row.Slot.Day))
	row.Double, row.Matched = res.Double, res.Matched
}

// scan walks forward from the current slot for the first double-value slot and
// the first Drone slot.
func scan(in Input, cur gametime.Slot, swap *model.SlotSwap) (double, drone *Upcoming) {
	n := in.Lookahead
	if n <= 0 {
		n = DefaultLookahead
	}
	for i := 0; i < n && (double == nil || drone == nil); i++ {
		slot := in.Resolver.Resolve(cur.Start.Add(time.Duration(i) * model.SlotWidth))
		ar, ok := override.Lookup(in.Schedule, swap, slot)
		if !ok || ar.Event == "" {
			continue
		}
		starts := gametime.Countdown(in.Now, slot.Start)
		if double == nil {
			if res := in.Classifier.Classify(ar.Event, ar.Task, in.Schedule.VsRows(slot.Day)); res.Double {
				double = &Upcoming{Slot: slot, Event: ar.Event, Matched: res.Matched, Starts: starts}
			}
		}
		if drone == nil && overlap.WordInText("drone", ar.Event) {
			drone = &Upcoming{Slot: slot, Event: ar.Event, Starts: starts}
		}
	}
	return double, drone
}

func secretaryView(buff *model.SecretaryBuff, now time.Time) Secretary {
	st := override.ObserveBuff(buff, now)
	v := Secretary{Phase: st.Phase, Lapsed: st.Lapsed}
	if st.Buff == nil {
		return v
	}
	v.Kind, v.Start, v.End = st.Buff.Kind, st.Buff.StartUTC, st.Buff.EndUTC
	if role, ok := model.LookupSecretary(string(st.Buff.Kind)); ok {
		v.Icon = role.Icon
	}
	switch st.Phase {
	case override.Scheduled:
		v.Label = "starts in " + gametime.FormatDuration(st.Remaining(now))
	case override.Active:
		v.Label = "ends in " + gametime.FormatDuration(st.Remaining(now))
	}
	return v
}
