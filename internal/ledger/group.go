package ledger

import (
	"strings"

	"raceplan/internal/model"
)

// Group is one display label for instances sharing a base name.
type Group struct {
	Base     string
	Suffixes []string
}

// Label renders "Squad (UR, SSR)" or the bare base name.
func (g Group) Label() string {
	if len(g.Suffixes) == 0 {
		return g.Base
	}
	return g.Base + " (" + strings.Join(g.Suffixes, ", ") + ")"
}

// GroupNames merges names by base name, keeping first-seen order of both
// groups and distinct suffixes.
func GroupNames(names []string) []Group {
	var out []Group
	idx := map[string]int{}
	for _, n := range names {
		base, suf := BaseName(n), Suffix(n)
		i, ok := idx[base]
		if !ok {
			i = len(out)
			idx[base] = i
			out = append(out, Group{Base: base})
		}
		if suf != "" && !contains(out[i].Suffixes, suf) {
			out[i].Suffixes = append(out[i].Suffixes, suf)
		}
	}
	return out
}

// Labels groups instances and returns their display labels.
func Labels(instances []model.ActiveTaskInstance) []string {
	if len(instances) == 0 {
		return nil
	}
	names := make([]string, len(instances))
	for i, in := range instances {
		names[i] = in.TaskName
	}
	groups := GroupNames(names)
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Label()
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
