// Package render formats plans and engine state as terminal or chat text.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"raceplan/internal/gametime"
	"raceplan/internal/ledger"
	"raceplan/internal/model"
	"raceplan/internal/override"
	"raceplan/internal/plan"
	"raceplan/internal/recurrence"
)

// Renderer writes human-readable views. Color enables ANSI highlighting; it
// is still subject to color.NoColor (non-TTY output).
type Renderer struct {
	Color bool
	// Loc is the frame clock times are shown in. Nil means UTC.
	Loc *time.Location
}

// Terminal returns a colored renderer in loc.
func Terminal(loc *time.Location) Renderer { return Renderer{Color: true, Loc: loc} }

// Plain returns an uncolored renderer in loc.
func Plain(loc *time.Location) Renderer { return Renderer{Loc: loc} }

var (
	styleDouble  = []color.Attribute{color.FgHiGreen, color.Bold}
	styleEnding  = []color.Attribute{color.FgHiBlue}
	styleBoth    = []color.Attribute{color.FgHiYellow, color.Bold}
	styleMuted   = []color.Attribute{color.FgHiBlack}
	styleHeader  = []color.Attribute{color.FgCyan, color.Bold}
	styleWarn    = []color.Attribute{color.FgYellow}
	styleCurrent = []color.Attribute{color.FgHiMagenta}
)

func (r Renderer) paint(s string, attrs []color.Attribute) string {
	if !r.Color {
		return s
	}
	return color.New(attrs...).Sprint(s)
}

func (r Renderer) loc() *time.Location {
	if r.Loc == nil {
		return time.UTC
	}
	return r.Loc
}

func (r Renderer) clock(t time.Time) string { return t.In(r.loc()).Format("15:04") }

func highlightStyle(h string) []color.Attribute {
	switch h {
	case "both":
		return styleBoth
	case "double":
		return styleDouble
	case "ending":
		return styleEnding
	}
	return nil
}

// Plan writes the six-slot plan with its banners.
func (r Renderer) Plan(w io.Writer, p plan.Plan) {
	fmt.Fprintf(w, "%s  %s %s slot %d  (slot ends in %s, reset in %s)\n",
		r.paint("Arms Race plan", styleHeader),
		p.Current.Day, p.Current.GameDate, p.Current.Index,
		gametime.FormatDuration(p.SlotEndsIn), gametime.FormatDuration(p.UntilReset))

	if p.NextDouble != nil {
		fmt.Fprintf(w, "Next double: %s (%s) %s\n",
			r.paint(p.NextDouble.Event, styleDouble), strings.Join(p.NextDouble.Matched, ", "), p.NextDouble.Starts)
	}
	if p.NextDrone != nil {
		fmt.Fprintf(w, "Next drone:  %s %s\n", p.NextDrone.Event, p.NextDrone.Starts)
	}
	if p.Swap != nil {
		fmt.Fprintf(w, "Swap armed:  slots %d <-> %d (%s)\n", p.Swap.FromSlot, p.Swap.ToSlot, p.Swap.GameDate)
	}
	if s := p.Secretary; s.Phase != override.Idle {
		fmt.Fprintf(w, "Secretary:   %s %s %s\n", s.Icon, s.Kind.Short(), s.Label)
	}
	fmt.Fprintln(w)

	for _, row := range p.Rows {
		r.row(w, row)
	}
	for _, err := range p.Skipped {
		fmt.Fprintln(w, r.paint("skipped: "+err.Error(), styleWarn))
	}
}

func (r Renderer) row(w io.Writer, row plan.Row) {
	marker := "  "
	if row.Current {
		marker = r.paint("> ", styleCurrent)
	}
	event := row.Event
	if event == model.NoEvent {
		event = r.paint(event, styleMuted)
	} else if st := highlightStyle(row.Highlight()); st != nil {
		event = r.paint(event, st)
	}
	var flags []string
	if row.Double {
		flags = append(flags, "x2 "+strings.Join(row.Matched, ", "))
	}
	if row.Swapped {
		flags = append(flags, "swapped")
	}
	if row.Secretary {
		flags = append(flags, "secretary")
	}
	fmt.Fprintf(w, "%s%s %s-%s  #%d  %s", marker, row.Slot.Day.String()[:3],
		r.clock(row.Slot.Start), r.clock(row.Slot.End), row.Slot.Index, event)
	if len(flags) > 0 {
		fmt.Fprintf(w, "  [%s]", strings.Join(flags, "; "))
	}
	fmt.Fprintln(w)
	if len(row.SpecialEvents) > 0 {
		fmt.Fprintf(w, "      events: %s\n", strings.Join(row.SpecialEvents, ", "))
	}
	if len(row.ActiveTasks) > 0 {
		fmt.Fprintf(w, "      tasks:  %s\n", strings.Join(row.ActiveTasks, ", "))
	}
	if len(row.EndingTasks) > 0 {
		fmt.Fprintf(w, "      ending: %s\n", r.paint(strings.Join(row.EndingTasks, ", "), styleEnding))
	}
}

// Slot writes the slot at now.
func (r Renderer) Slot(w io.Writer, s gametime.Slot, now time.Time) {
	fmt.Fprintf(w, "%s slot %d (%s) %s-%s, ends in %s\n",
		s.Day, s.Index, s.GameDate, r.clock(s.Start), r.clock(s.End), gametime.FormatDuration(s.End.Sub(now)))
}

// Templates writes each template with its rarities and remaining quota.
// quotas is matched by position.
func (r Renderer) Templates(w io.Writer, tpls []model.TaskTemplate, quotas []ledger.Quota) {
	if len(tpls) == 0 {
		fmt.Fprintln(w, r.paint("no templates", styleMuted))
		return
	}
	for i, t := range tpls {
		var parts []string
		for _, a := range t.Available() {
			parts = append(parts, fmt.Sprintf("%s %s", a.Rarity, gametime.FormatDuration(time.Duration(a.Minutes)*time.Minute)))
		}
		quota := fmt.Sprintf("max %d/day", t.MaxDaily)
		if i < len(quotas) {
			q := quotas[i]
			quota = fmt.Sprintf("%d/%d used", q.Used, q.Max)
			if !q.Allowed() {
				quota = r.paint(quota, styleWarn)
			}
		}
		name := t.Name
		if t.Icon != "" {
			name = t.Icon + " " + name
		}
		if !t.IsDefault {
			name += r.paint(" (custom)", styleMuted)
		}
		fmt.Fprintf(w, "%s: %s  %s\n", name, strings.Join(parts, ", "), quota)
	}
}

// Tasks writes running instances with their remaining time.
func (r Renderer) Tasks(w io.Writer, tasks []model.ActiveTaskInstance, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, r.paint("no active tasks", styleMuted))
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "%s  %s  ends %s (%s left)\n", t.TaskID, t.TaskName,
			r.clock(t.EndUTC), gametime.FormatDuration(t.EndUTC.Sub(now)))
	}
}

// Buff writes the secretary status.
func (r Renderer) Buff(w io.Writer, st override.BuffStatus, now time.Time) {
	if st.Phase == override.Idle || st.Buff == nil {
		fmt.Fprintln(w, "secretary: idle")
		return
	}
	role, _ := model.LookupSecretary(string(st.Buff.Kind))
	fmt.Fprintf(w, "secretary: %s %s %s (%s-%s, %s)\n", role.Icon, st.Buff.Kind, st.Phase,
		r.clock(st.Buff.StartUTC), r.clock(st.Buff.EndUTC), gametime.FormatDuration(st.Remaining(now)))
	for _, b := range role.Bonuses {
		fmt.Fprintf(w, "  %s %s\n", b.Name, b.Value)
	}
}

// Roster writes the five secretary roles.
func (r Renderer) Roster(w io.Writer) {
	for _, role := range model.Secretaries {
		var bonuses []string
		for _, b := range role.Bonuses {
			bonuses = append(bonuses, b.Name+" "+b.Value)
		}
		fmt.Fprintf(w, "%s %-12s %s\n", role.Icon, role.Kind.Short(), strings.Join(bonuses, ", "))
	}
}

// Swap writes the swap state.
func (r Renderer) Swap(w io.Writer, canSwap bool, swap *model.SlotSwap) {
	if swap != nil {
		fmt.Fprintf(w, "swap armed: slots %d <-> %d for %s\n", swap.FromSlot, swap.ToSlot, swap.GameDate)
		return
	}
	if canSwap {
		fmt.Fprintln(w, "no swap armed; one swap available today")
	}
}

// Occurrences writes upcoming special events, one per line.
func (r Renderer) Occurrences(w io.Writer, occ []recurrence.Occurrence) {
	if len(occ) == 0 {
		fmt.Fprintln(w, r.paint("no upcoming events", styleMuted))
		return
	}
	for _, o := range occ {
		s := o.Start.In(r.loc())
		fmt.Fprintf(w, "%s %s %s-%s  %s\n", s.Format("Mon"), s.Format("2006-01-02"),
			r.clock(o.Start), r.clock(o.End), o.Name)
	}
}
