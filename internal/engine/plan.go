package engine

import (
	"context"
	"time"

	"raceplan/internal/eventbus"
	"raceplan/internal/plan"
	logx "raceplan/pkg/logx"
)

// BuildPlan sweeps expired state and builds the six-slot plan at now.
func (e *Engine) BuildPlan(ctx context.Context, now time.Time) (plan.Plan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	live, _, err := e.sweepLocked(ctx, now)
	if err != nil {
		return plan.Plan{}, err
	}
	buff, err := e.buffLocked(ctx, now)
	if err != nil {
		return plan.Plan{}, err
	}
	swap, err := e.swapLocked(ctx, now)
	if err != nil {
		return plan.Plan{}, err
	}
	sched, err := e.store.LoadSchedule(ctx)
	if err != nil {
		return plan.Plan{}, err
	}
	events, err := e.store.LoadSpecialEvents(ctx)
	if err != nil {
		return plan.Plan{}, err
	}

	r, c, lookahead := e.settings()
	p := plan.Build(plan.Input{
		Now:        now,
		Resolver:   r,
		Classifier: c,
		Schedule:   sched,
		Events:     events,
		Instances:  live,
		Swap:       swap,
		Buff:       buff,
		Lookahead:  lookahead,
	})
	for _, err := range p.Skipped {
		e.log.Warn("special event skipped", logx.Err(err))
	}
	return p, nil
}

// ResetTick is run by the scheduler at each daily reset. It sweeps, drops a
// stale swap and announces the new game day.
func (e *Engine) ResetTick(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, _, err := e.sweepLocked(ctx, now); err != nil {
		return err
	}
	if _, err := e.swapLocked(ctx, now); err != nil {
		return err
	}
	slot := e.Resolver().Resolve(now)
	e.log.Info("game day reset", logx.String("game_date", slot.GameDate), logx.String("day", slot.Day.String()))
	e.publish(eventbus.GameReset, now, slot)
	return nil
}
