// Package override owns the two singleton overrides: the secretary buff and the
// daily slot swap. Both expire lazily; callers persist the transitions reported here.
package override

import (
	"errors"
	"fmt"
	"time"

	"raceplan/internal/model"
	"raceplan/internal/recurrence"
)

// Phase of the secretary buff state machine: Idle -> Scheduled -> Active -> Idle.
type Phase int

const (
	Idle Phase = iota
	Scheduled
	Active
)

func (p Phase) String() string {
	switch p {
	case Scheduled:
		return "scheduled"
	case Active:
		return "active"
	default:
		return "idle"
	}
}

// BuffStatus is the observed state of the secretary buff at one instant.
type BuffStatus struct {
	Phase Phase
	Buff  *model.SecretaryBuff
	// Until is the next transition: start while Scheduled, end while Active.
	Until time.Time
	// Lapsed is set when a stored buff was found past its end; the caller
	// must clear it.
	Lapsed bool
}

// Remaining is the time left until the next transition.
func (s BuffStatus) Remaining(now time.Time) time.Duration {
	if s.Phase == Idle {
		return 0
	}
	return s.Until.Sub(now)
}

// ObserveBuff classifies buff at now.
func ObserveBuff(buff *model.SecretaryBuff, now time.Time) BuffStatus {
	if buff == nil {
		return BuffStatus{Phase: Idle}
	}
	switch {
	case !now.Before(buff.EndUTC):
		return BuffStatus{Phase: Idle, Lapsed: true}
	case !now.Before(buff.StartUTC):
		return BuffStatus{Phase: Active, Buff: buff, Until: buff.EndUTC}
	default:
		return BuffStatus{Phase: Scheduled, Buff: buff, Until: buff.StartUTC}
	}
}

// NewBuff returns a buff of kind starting at start.
func NewBuff(kind model.SecretaryKind, start time.Time) model.SecretaryBuff {
	s := start.UTC()
	return model.SecretaryBuff{Kind: kind, StartUTC: s, EndUTC: s.Add(model.SecretaryBuffDuration)}
}

// ErrQueueLength rejects a negative queue position.
var ErrQueueLength = errors.New("people ahead must be >= 0")

// StartAfterQueue estimates the start with n people ahead, each holding the
// position for one buff length.
func StartAfterQueue(now time.Time, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, ErrQueueLength
	}
	return now.Add(time.Duration(n) * model.SecretaryBuffDuration), nil
}

// StartAtClock resolves a server-clock "HH:MM" to the next such instant at or
// after now. A time already past today rolls to tomorrow.
func StartAtClock(now time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	off, err := recurrence.ParseTimeOfDay(hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("buff start: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	s := now.In(loc)
	at := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc).Add(off)
	if at.Before(s.Truncate(time.Minute)) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
