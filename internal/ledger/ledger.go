// Package ledger counts daily task activations and answers instance window
// queries. Quotas are derived from persisted instances only, so there is no
// counter to drift out of sync.
package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"raceplan/internal/model"
)

var reSuffix = regexp.MustCompile(`^(.*\S)\s*\(([A-Z]{1,3})\)$`)

// BaseName strips a trailing rarity suffix: "Squad (UR)" -> "Squad".
func BaseName(name string) string {
	if m := reSuffix.FindStringSubmatch(strings.TrimSpace(name)); m != nil {
		return m[1]
	}
	return strings.TrimSpace(name)
}

// Suffix returns the trailing rarity suffix of name, or "".
func Suffix(name string) string {
	if m := reSuffix.FindStringSubmatch(strings.TrimSpace(name)); m != nil {
		return m[2]
	}
	return ""
}

// InstanceName is the stored name for an activation. Templates offering a
// single rarity keep the bare name.
func InstanceName(tpl model.TaskTemplate, rarity model.Rarity) string {
	if len(tpl.Available()) <= 1 {
		return tpl.Name
	}
	return fmt.Sprintf("%s (%s)", tpl.Name, rarity)
}

// Count returns how many activations of template name started at or after dayStart.
func Count(name string, records []model.ActiveTaskInstance, dayStart time.Time) int {
	n := 0
	for _, r := range records {
		if BaseName(r.TaskName) == name && !r.StartUTC.Before(dayStart) {
			n++
		}
	}
	return n
}

// Quota is the activation budget of one template for the current game day.
type Quota struct {
	Template string
	Used     int
	Max      int
}

// Allowed reports whether one more activation fits.
func (q Quota) Allowed() bool { return q.Used < q.Max }

// Remaining is the number of activations left, never negative.
func (q Quota) Remaining() int {
	if q.Used >= q.Max {
		return 0
	}
	return q.Max - q.Used
}

// QuotaFor derives the quota of tpl from records (active and historical).
func QuotaFor(tpl model.TaskTemplate, records []model.ActiveTaskInstance, dayStart time.Time) Quota {
	return Quota{Template: tpl.Name, Used: Count(tpl.Name, records, dayStart), Max: tpl.MaxDaily}
}

// NewInstance builds an activation of tpl at rarity starting now.
func NewInstance(id string, tpl model.TaskTemplate, rarity model.Rarity, now time.Time) (model.ActiveTaskInstance, error) {
	mins := tpl.Durations[rarity]
	if mins <= 0 {
		return model.ActiveTaskInstance{}, fmt.Errorf("template %q has no %s duration", tpl.Name, rarity)
	}
	start := now.UTC()
	return model.ActiveTaskInstance{
		TaskID:          id,
		TaskName:        InstanceName(tpl, rarity),
		StartUTC:        start,
		EndUTC:          start.Add(time.Duration(mins) * time.Minute),
		DurationMinutes: mins,
		Status:          model.StatusActive,
	}, nil
}

// Sweep splits instances into those still running and those with End <= now.
// Expired entries are returned with StatusExpired set.
func Sweep(instances []model.ActiveTaskInstance, now time.Time) (live, expired []model.ActiveTaskInstance) {
	for _, in := range instances {
		if !in.EndUTC.After(now) {
			in.Status = model.StatusExpired
			expired = append(expired, in)
			continue
		}
		live = append(live, in)
	}
	return live, expired
}

// Prune drops history records that started before cutoff.
func Prune(history []model.ActiveTaskInstance, cutoff time.Time) []model.ActiveTaskInstance {
	out := history[:0:0]
	for _, h := range history {
		if !h.StartUTC.Before(cutoff) {
			out = append(out, h)
		}
	}
	return out
}

// Overlapping returns instances whose run intersects [ws, we).
func Overlapping(instances []model.ActiveTaskInstance, ws, we time.Time) []model.ActiveTaskInstance {
	var out []model.ActiveTaskInstance
	for _, in := range instances {
		if in.StartUTC.Before(we) && in.EndUTC.After(ws) {
			out = append(out, in)
		}
	}
	return out
}

// EndingWithin returns instances whose end falls in [ws, we).
func EndingWithin(instances []model.ActiveTaskInstance, ws, we time.Time) []model.ActiveTaskInstance {
	var out []model.ActiveTaskInstance
	for _, in := range instances {
		if !in.EndUTC.Before(ws) && in.EndUTC.Before(we) {
			out = append(out, in)
		}
	}
	return out
}

// Find returns the index of the instance with id, or -1.
func Find(instances []model.ActiveTaskInstance, id string) int {
	for i, in := range instances {
		if in.TaskID == id {
			return i
		}
	}
	return -1
}
