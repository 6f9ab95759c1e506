package gametime

import (
	"fmt"
	"time"
)

// FormatDuration renders d compactly: "2d 4h", "1h 30m", "45m" or "0m".
// Seconds are truncated.
func FormatDuration(d time.Duration) string {
	total := int(d / time.Minute)
	if total <= 0 {
		return "0m"
	}
	days := total / 1440
	hours := (total % 1440) / 60
	mins := total % 60
	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// Countdown renders the time from now until at: "NOW" under a minute, else "in 3h 20m".
func Countdown(now, at time.Time) string {
	d := at.Sub(now)
	if d < time.Minute {
		return "NOW"
	}
	return "in " + FormatDuration(d)
}
