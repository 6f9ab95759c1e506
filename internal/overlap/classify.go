package overlap

import (
	"regexp"
	"strings"
	"sync"

	"raceplan/internal/model"
)

// crossWords link Base-style slots to VS tasks whatever the category root is called.
var crossWords = []string{"building", "construction"}

var (
	patMu sync.Mutex
	pats  = map[string]*regexp.Regexp{}
)

func wordPattern(keyword string) *regexp.Regexp {
	key := strings.ToLower(keyword)
	patMu.Lock()
	defer patMu.Unlock()
	if re, ok := pats[key]; ok {
		return re
	}
	// \b is ASCII-only in RE2; letters and digits in any script count as word runes.
	re := regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(key) + `(?:$|[^\p{L}\p{N}_])`)
	pats[key] = re
	return re
}

// WordInText reports whether keyword occurs in text as a whole word, ignoring case.
// "art" does not match "cartage".
func WordInText(keyword, text string) bool {
	if strings.TrimSpace(keyword) == "" {
		return false
	}
	return wordPattern(keyword).MatchString(strings.ToLower(text))
}

// CategoryRoot is the first whitespace-delimited token of an Arms Race event name.
func CategoryRoot(event string) string {
	f := strings.Fields(event)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Result of classifying one slot.
type Result struct {
	Double  bool
	Matched []string // VS event names, deduplicated in first-seen order
}

// Classifier holds the synonym table used for matching.
type Classifier struct {
	table Table
}

// New returns a classifier over table. A nil table uses DefaultTable.
func New(table Table) *Classifier {
	if table == nil {
		table = DefaultTable()
	}
	return &Classifier{table: table}
}

// Table returns the classifier's synonym table.
func (c *Classifier) Table() Table { return c.table }

// Classify matches an Arms Race slot (event name plus task text) against the
// VS Duel rows of the same game day. Every matching row is collected rather
// than stopping at the first hit, so a slot that overlaps two VS events reports
// both in Matched. Double is true when at least one row matched.
func (c *Classifier) Classify(arEvent, arTask string, vs []model.VsDuelEntry) Result {
	var res Result
	if strings.TrimSpace(arEvent) == "" || arEvent == model.NoEvent || len(vs) == 0 {
		return res
	}
	keywords := c.table.Keywords(CategoryRoot(arEvent))
	arText := arEvent + " " + arTask
	arCross := anyWord(crossWords, arText)

	seen := map[string]bool{}
	for _, row := range vs {
		hit := anyWord(keywords, row.Event) || anyWord(keywords, row.Task)
		if !hit && arCross {
			hit = anyWord(crossWords, row.Event) || anyWord(crossWords, row.Task)
		}
		if !hit {
			continue
		}
		res.Double = true
		if !seen[row.Event] {
			seen[row.Event] = true
			res.Matched = append(res.Matched, row.Event)
		}
	}
	return res
}

func anyWord(keywords []string, text string) bool {
	for _, kw := range keywords {
		if WordInText(kw, text) {
			return true
		}
	}
	return false
}
