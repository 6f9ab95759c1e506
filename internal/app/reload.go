package app

import (
	"context"
	"strings"

	"raceplan/internal/config"
	"raceplan/internal/scheduler"
	logx "raceplan/pkg/logx"
)

// reloadLoop applies committed config changes to the running components.
func (a *App) reloadLoop(ctx context.Context) error {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-sub:
			if !ok {
				return nil
			}
			// Coalesce bursts: keep only the newest config.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			a.apply(last, next)
			last = next
		}
	}
}

func (a *App) apply(prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart := config.RestartRequired(sections); len(restart) > 0 {
		a.log.Warn("config change needs restart", logx.Strings("sections", restart))
	}

	a.logs.Apply(next.LogOptions())
	a.engine.Configure(next.Resolver(), classifier(next), next.Lookahead())

	if a.sched != nil {
		if err := a.sched.Relocate(next.Location()); err != nil {
			a.log.Warn("scheduler relocate failed", logx.Err(err))
		}
		if next.Scheduler.Enabled {
			if err := a.sched.Reschedule(jobSweep, next.SweepSpec()); err != nil {
				a.log.Debug("sweep reschedule skipped", logx.Err(err))
			}
			if err := a.sched.Reschedule(jobReset, scheduler.DailyAt(next.Game.ResetHour)); err != nil {
				a.log.Debug("reset reschedule skipped", logx.Err(err))
			}
		}
	}
	if a.cmdm != nil {
		a.cmdm.SetOwners(next.Telegram.OwnerUserIDs)
	}
	a.cfg = next

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}
