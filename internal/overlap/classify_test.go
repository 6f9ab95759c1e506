package overlap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"raceplan/internal/model"
)

func TestWordInText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kw, text string
		want     bool
	}{
		{"art", "cartage", false},
		{"art", "Art of War", true},
		{"Hero", "Hero Shard", true},
		{"Hero", "hero", true},
		{"hero", "Superheroes", false},
		{"Train", "Training Speedup", false},
		{"Train T8 Unit", "Train T8 Unit x50", true},
		{"", "anything", false},
		{"art", "Artículo", false},
		{"hero", "英雄hero", false},
		{"Drone", "Droneñ Part", false},
		{"Hero", "«Hero» Shard", true},
		{"Hero", "Héros, Hero Shard", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WordInText(tt.kw, tt.text), "%q in %q", tt.kw, tt.text)
	}
}

func TestClassifyHeroScenario(t *testing.T) {
	t.Parallel()
	c := New(nil)
	vs := []model.VsDuelEntry{
		{Day: time.Tuesday, Event: "Hero Recruitment", Task: "Hero Shard"},
		{Day: time.Tuesday, Event: "Hero Recruitment", Task: "Use Recruitment Tickets"},
		{Day: time.Tuesday, Event: "Tech Day", Task: "Research Speedup"},
	}
	got := c.Classify("Hero Development", "Hero EXP", vs)
	assert.True(t, got.Double)
	assert.Equal(t, []string{"Hero Recruitment"}, got.Matched)
}

func TestClassifyCrossRule(t *testing.T) {
	t.Parallel()
	c := New(nil)
	vs := []model.VsDuelEntry{{Event: "Growth Day", Task: "Construction Speedup x10"}}

	// "City" has no table entry, but the slot text names building work.
	got := c.Classify("City Building", "", vs)
	assert.True(t, got.Double)
	assert.Equal(t, []string{"Growth Day"}, got.Matched)

	// Without the cross words on the Arms Race side there is no match.
	got = c.Classify("City Expansion", "", vs)
	assert.False(t, got.Double)
	assert.Empty(t, got.Matched)
}

func TestClassifyFallbackAndSentinel(t *testing.T) {
	t.Parallel()
	c := New(nil)
	vs := []model.VsDuelEntry{{Event: "Radar Day", Task: "Complete radar missions"}}

	assert.True(t, c.Classify("Radar Training", "", vs).Double)
	assert.False(t, c.Classify(model.NoEvent, "", vs).Double)
	assert.False(t, c.Classify("", "", vs).Double)
	assert.False(t, c.Classify("Radar Training", "", nil).Double)
}

func TestClassifyCollectsEveryMatch(t *testing.T) {
	t.Parallel()
	c := New(nil)
	vs := []model.VsDuelEntry{
		{Event: "Hero Recruitment", Task: "Use Recruitment Tickets"},
		{Event: "Shopping", Task: "Spend gems"},
		{Event: "Elite Trial", Task: "Hero Shard"},
		{Event: "Hero Recruitment", Task: "Hero EXP"},
	}
	got := c.Classify("Hero Development", "", vs)
	assert.True(t, got.Double)
	assert.Equal(t, []string{"Hero Recruitment", "Elite Trial"}, got.Matched)
}

func TestClassifyAllRounder(t *testing.T) {
	t.Parallel()
	c := New(nil)
	vs := []model.VsDuelEntry{
		{Event: "Drone Boost", Task: "Drone Part"},
		{Event: "Shopping", Task: "Spend gems"},
		{Event: "Drone Boost", Task: "Stamina"},
	}
	got := c.Classify("All-Rounder", "", vs)
	assert.True(t, got.Double)
	assert.Equal(t, []string{"Drone Boost"}, got.Matched)
}

func TestTableMerge(t *testing.T) {
	t.Parallel()
	base := DefaultTable()
	merged := base.Merge(map[string][]string{
		"Hero":  {"hero", "Exclusive Weapon"},
		"Radar": {"Radar", "Intel"},
		"":      {"ignored"},
	})

	assert.Len(t, base["Hero"], 5, "merge must not mutate the receiver")
	assert.Equal(t, "Exclusive Weapon", merged["Hero"][len(merged["Hero"])-1])
	assert.Len(t, merged["Hero"], 6)
	assert.Equal(t, []string{"Radar", "Intel"}, merged.Keywords("Radar"))
	assert.Equal(t, []string{"unknown"}, merged.Keywords("Unknown"))
	assert.Equal(t, base["Tech"], merged.Keywords("tech"))
	assert.Nil(t, merged.Keywords(""))
}
