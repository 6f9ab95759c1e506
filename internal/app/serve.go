package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"raceplan/internal/config"
	"raceplan/internal/observability/status"
	"raceplan/internal/runtime/supervisor"
	"raceplan/internal/scheduler"
	kit "raceplan/internal/transport"
	telegram "raceplan/internal/transport/telegram/adapter"
	"raceplan/internal/transport/telegram/router"
	logx "raceplan/pkg/logx"
)

const (
	jobSweep = "sweep"
	jobReset = "reset"
)

// Serve runs the service until ctx ends or a fatal error occurs.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), StopFatalError)
		return err
	}
	reason := StopSignal
	select {
	case <-ctx.Done():
	case <-a.sup.Context().Done():
		reason = StopFatalError
	}
	err := a.sup.Err()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Stop(stopCtx, reason)
	return err
}

// Start launches the scheduler, the optional telegram front-end and the
// config watcher under one supervisor.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfg
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.Component("app")), supervisor.WithCancelOnError(true))
	a.sups = router.NewSupervisorRegistry()
	a.sups.Set("app", a.sup)

	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		_, err := loadCatalog(cfg)
		return err
	})

	if err := a.startScheduler(); err != nil {
		return err
	}
	if err := a.startTelegram(); err != nil {
		return err
	}
	a.startStatus()

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	a.sup.Go("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", a.cfgm.Watch)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	if every, err := daemon.SdWatchdogEnabled(false); err == nil && every > 0 {
		a.sup.Go("systemd.watchdog", func(c context.Context) error {
			return watchdog(c, every/2)
		})
	}
	a.log.Info("service started",
		logx.String("tz", cfg.Location().String()),
		logx.Int("reset_hour", cfg.Game.ResetHour),
		logx.Bool("telegram", a.adapter != nil),
	)
	return nil
}

func (a *App) startScheduler() error {
	a.sched = scheduler.New(a.cfg.Location(), a.log.Component("scheduler"))
	if !a.cfg.Scheduler.Enabled {
		return nil
	}
	err := a.sched.Add(jobSweep, a.cfg.SweepSpec(), 0, func(ctx context.Context, now time.Time) error {
		n, err := a.engine.SweepExpired(ctx, now)
		if err != nil {
			return err
		}
		if n > 0 {
			a.log.Debug("sweep expired tasks", logx.Int("count", n))
		}
		// Observing the buff clears it once it has lapsed.
		_, err = a.engine.SecretaryStatus(ctx, now)
		return err
	})
	if err != nil {
		return err
	}
	err = a.sched.Add(jobReset, scheduler.DailyAt(a.cfg.Game.ResetHour), 0, func(ctx context.Context, now time.Time) error {
		if !a.cfgm.Get().Scheduler.NotifyReset {
			_, err := a.engine.SweepExpired(ctx, now)
			return err
		}
		return a.engine.ResetTick(ctx, now)
	})
	if err != nil {
		return err
	}
	return a.sched.Start(a.sup.Context())
}

func (a *App) startTelegram() error {
	tc := a.cfg.Telegram
	if !tc.Enabled {
		return nil
	}
	ad, err := telegram.New(telegram.Config{
		Token:       tc.Token,
		PollTimeout: a.cfg.PollTimeout(),
		RatePerSec:  tc.RatePerSec,
	}, a.log.Component("telegram"))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	a.adapter = ad
	a.updates = make(chan kit.Message, 64)
	if err := ad.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if sup := ad.Supervisor(); sup != nil {
		a.sups.Set("telegram.adapter", sup)
	}
	if tc.NotifyChatID != 0 {
		a.logs.SetChatSink(ad, tc.NotifyChatID)
	}

	a.cmdm = router.NewCommandManager(a.log.Component("telegram.router"), ad, tc.OwnerUserIDs)
	h := &router.Handlers{Engine: a.engine, Supervisors: a.sups}
	a.cmdm.Register(a.sup.Context(), append(h.Commands(), a.cmdm.HelpCommand())...)
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	fw := &router.Forwarder{
		Adapter: ad,
		ChatID:  tc.NotifyChatID,
		Loc:     a.cfg.Location(),
		Log:     a.log.Component("telegram.notify"),
	}
	a.sup.GoRestart("telegram.notify", func(c context.Context) error {
		return fw.Run(c, a.bus)
	}, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	return nil
}

func (a *App) startStatus() {
	sc := a.cfg.Status
	if !sc.Enabled {
		return
	}
	srv := status.New(status.Config{
		Addr:  a.cfg.StatusAddr(),
		Token: sc.Token,
		Pprof: sc.Pprof,
	}, a.engine, a.sups.Summary, a.log.Component("status"))
	// Status is optional; a bind failure keeps retrying without stopping the service.
	a.sup.GoRestart("status.http", srv.Run, supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
}

// watchdog pings systemd until ctx ends.
func watchdog(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

// Stop shuts components down in reverse order. Each step is bounded so one
// component cannot stall the rest.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.Close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Debug("sd_notify stopping failed", logx.Err(err))
	}
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		sctx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- fn(sctx) }()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-sctx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error {
		if a.sched != nil {
			a.sched.Stop(c)
		}
		return nil
	})
	step("adapter", 2*time.Second, func(c context.Context) error {
		if a.adapter == nil {
			return nil
		}
		a.logs.SetChatSink(nil, 0)
		return a.adapter.Stop(c)
	})
	step("supervisor", 2*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}
