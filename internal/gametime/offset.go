package gametime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reOffset = regexp.MustCompile(`^(?i:utc|gmt)?\s*([+-])\s*(\d{1,2})(?::?(\d{2}))?$`)

// ParseOffset parses a fixed server offset such as "UTC-2", "UTC+05:30",
// "-02:00" or "UTC". Zone names are rejected: slots are fixed four-hour blocks
// and a zone with DST transitions would give some days 23 or 25 hours.
func ParseOffset(raw string) (*time.Location, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "", "UTC", "GMT", "Z":
		return time.UTC, nil
	}
	if m := reOffset.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[2])
		mins := 0
		if m[3] != "" {
			mins, _ = strconv.Atoi(m[3])
		}
		if h > 14 || mins > 59 {
			return nil, fmt.Errorf("offset %q out of range", raw)
		}
		secs := h*3600 + mins*60
		if m[1] == "-" {
			secs = -secs
		}
		return time.FixedZone(offsetName(m[1], h, mins), secs), nil
	}
	return nil, fmt.Errorf("invalid server offset %q (use a fixed offset such as UTC-2 or UTC+05:30)", raw)
}

func offsetName(sign string, h, m int) string {
	if h == 0 && m == 0 {
		return "UTC"
	}
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, h, m)
}
