package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"raceplan/internal/eventbus"
	"raceplan/internal/model"
	"raceplan/internal/override"
	logx "raceplan/pkg/logx"
)

// SetSecretaryBuff stores a buff of role starting at start, replacing any
// existing buff. role accepts a full or short role name.
func (e *Engine) SetSecretaryBuff(ctx context.Context, role string, start, now time.Time) (model.SecretaryBuff, error) {
	r, ok := model.LookupSecretary(role)
	if !ok {
		return model.SecretaryBuff{}, fmt.Errorf("%w: %q", ErrUnknownSecretary, role)
	}
	buff := override.NewBuff(r.Kind, start)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SaveSecretaryBuff(ctx, &buff); err != nil {
		return model.SecretaryBuff{}, err
	}
	e.log.Info("secretary buff set",
		logx.String("role", string(buff.Kind)),
		logx.Time("start", buff.StartUTC),
		logx.Time("end", buff.EndUTC),
	)
	e.publish(eventbus.BuffSet, now, buff)
	return buff, nil
}

// ClearSecretaryBuff removes the buff, if any.
func (e *Engine) ClearSecretaryBuff(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clearBuffLocked(ctx, now, "manual")
}

func (e *Engine) clearBuffLocked(ctx context.Context, now time.Time, reason string) error {
	if err := e.store.SaveSecretaryBuff(ctx, nil); err != nil {
		return err
	}
	e.log.Debug("secretary buff cleared", logx.String("reason", reason))
	e.publish(eventbus.BuffCleared, now, reason)
	return nil
}

// SecretaryStatus observes the buff at now, clearing it if it has lapsed.
func (e *Engine) SecretaryStatus(ctx context.Context, now time.Time) (override.BuffStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buff, err := e.buffLocked(ctx, now)
	if err != nil {
		return override.BuffStatus{}, err
	}
	return override.ObserveBuff(buff, now), nil
}

// buffLocked loads the buff and applies the lazy auto-clear.
func (e *Engine) buffLocked(ctx context.Context, now time.Time) (*model.SecretaryBuff, error) {
	buff, err := e.store.LoadSecretaryBuff(ctx)
	if err != nil {
		return nil, err
	}
	if st := override.ObserveBuff(buff, now); st.Lapsed {
		if err := e.clearBuffLocked(ctx, now, "lapsed"); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return buff, nil
}

// ParseBuffStart resolves a user-supplied buff start relative to now:
//
//	""/"now"   now
//	"HH:MM"    next such server-clock time
//	"10m"      now + duration ("+10m" also accepted)
//	"q3"       three people ahead in line, 5 minutes each
func (e *Engine) ParseBuffStart(raw string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "" || s == "now":
		return now, nil
	case strings.Contains(s, ":"):
		return override.StartAtClock(now, s, e.Resolver().Location())
	case strings.HasPrefix(s, "q"):
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(s, "queue"), "q"))
		if err != nil {
			return time.Time{}, fmt.Errorf("buff start: bad queue position %q", raw)
		}
		return override.StartAfterQueue(now, n)
	}
	d, err := time.ParseDuration(strings.TrimPrefix(s, "+"))
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("buff start: want now, HH:MM, a duration or q<N>, got %q", raw)
	}
	return now.Add(d), nil
}

// CanSwapToday reports whether a swap may be armed at now. A stored swap
// whose game day has ended is deleted. The live swap, if any, is returned.
func (e *Engine) CanSwapToday(ctx context.Context, now time.Time) (bool, *model.SlotSwap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	swap, err := e.swapLocked(ctx, now)
	if err != nil {
		return false, nil, err
	}
	return swap == nil, swap, nil
}

// swapLocked loads the swap and deletes it if stale.
func (e *Engine) swapLocked(ctx context.Context, now time.Time) (*model.SlotSwap, error) {
	swap, err := e.store.LoadSlotSwap(ctx)
	if err != nil {
		return nil, err
	}
	ok, stale := override.CanSwap(swap, e.Resolver(), now)
	if stale {
		if err := e.store.SaveSlotSwap(ctx, nil); err != nil {
			return nil, err
		}
		e.log.Debug("stale slot swap removed", logx.String("game_date", swap.GameDate))
		return nil, nil
	}
	if ok {
		return nil, nil
	}
	return swap, nil
}

// ArmSlotSwap swaps two Arms Race slots for the current game day. A second
// swap the same game day is rejected with ErrSwapArmed.
func (e *Engine) ArmSlotSwap(ctx context.Context, from, to int, now time.Time) (model.SlotSwap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, err := e.swapLocked(ctx, now)
	if err != nil {
		return model.SlotSwap{}, err
	}
	swap, err := override.Arm(cur, e.Resolver(), now, from, to)
	if err != nil {
		return model.SlotSwap{}, err
	}
	if err := e.store.SaveSlotSwap(ctx, &swap); err != nil {
		return model.SlotSwap{}, err
	}
	e.log.Info("slot swap armed",
		logx.String("game_date", swap.GameDate),
		logx.Int("from", swap.FromSlot),
		logx.Int("to", swap.ToSlot),
	)
	e.publish(eventbus.SwapArmed, now, swap)
	return swap, nil
}

// ClearSlotSwap removes the swap, if any. The game day may then be swapped again.
func (e *Engine) ClearSlotSwap(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SaveSlotSwap(ctx, nil); err != nil {
		return err
	}
	e.publish(eventbus.SwapCleared, now, nil)
	return nil
}
