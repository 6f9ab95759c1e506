// Package overlap decides when an Arms Race slot and the day's VS Duel tasks
// reward the same activity ("double value").
package overlap

import "strings"

// Table maps an Arms Race category root to the keywords that identify the same
// activity in VS Duel text.
type Table map[string][]string

// DefaultTable returns the built-in synonym table. All-Rounder carries the
// primary keyword of every other category.
func DefaultTable() Table {
	return Table{
		"Base":        {"Building Power", "Construction Speedup", "Building", "Construction"},
		"Tech":        {"Tech Power", "Research Speedup", "Research"},
		"Hero":        {"Hero Recruitment", "Hero EXP", "Hero Shard", "Hero", "Recruitment"},
		"Unit":        {"Train T8 Unit", "Training Speedup", "Training", "Train", "Unit"},
		"Drone":       {"Drone Data Point", "Drone Component", "Drone Part", "Stamina", "Drone"},
		"All-Rounder": {"Hero", "Building", "Research", "Train", "Construction", "Drone"},
	}
}

// Merge returns a copy of t with extra's keywords appended per root. Duplicate
// keywords (case-insensitive) are dropped; new roots are added.
func (t Table) Merge(extra map[string][]string) Table {
	out := make(Table, len(t)+len(extra))
	for k, v := range t {
		out[k] = append([]string(nil), v...)
	}
	for root, kws := range extra {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		cur := out[root]
		for _, kw := range kws {
			kw = strings.TrimSpace(kw)
			if kw == "" || containsFold(cur, kw) {
				continue
			}
			cur = append(cur, kw)
		}
		out[root] = cur
	}
	return out
}

// Keywords returns the keywords for root, falling back to the lowercased root
// itself when the table has no entry. Lookup tolerates case drift in the root.
func (t Table) Keywords(root string) []string {
	if kws, ok := t[root]; ok && len(kws) > 0 {
		return kws
	}
	for k, kws := range t {
		if strings.EqualFold(k, root) && len(kws) > 0 {
			return kws
		}
	}
	if root == "" {
		return nil
	}
	return []string{strings.ToLower(root)}
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
