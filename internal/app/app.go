// Package app wires configuration, logging, storage and the engine, and runs
// the long-lived service mode.
package app

import (
	"context"
	"fmt"

	"raceplan/internal/config"
	"raceplan/internal/engine"
	"raceplan/internal/eventbus"
	"raceplan/internal/runtime/supervisor"
	"raceplan/internal/scheduler"
	"raceplan/internal/storage"
	kit "raceplan/internal/transport"
	"raceplan/internal/transport/telegram/router"
	logx "raceplan/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	logs *logx.Service
	log  logx.Logger

	store  storage.Store
	bus    eventbus.Bus
	engine *engine.Engine

	// serve mode only
	sup     *supervisor.Supervisor
	sups    *router.SupervisorRegistry
	sched   *scheduler.Service
	adapter kit.Adapter
	cmdm    *router.CommandManager
	updates chan kit.Message
}

// Open loads cfgPath and builds a ready engine over the configured store.
// An empty store is seeded with the factory catalog.
func Open(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	logs, log := logx.New(cfg.LogOptions())

	fc, err := loadCatalog(cfg)
	if err != nil {
		logs.Close()
		return nil, err
	}
	store, err := storage.Open(cfg.StorageOptions(), log.Component("storage"))
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	bus := eventbus.New()
	eng := engine.New(store, engine.Options{
		Resolver:   cfg.Resolver(),
		Classifier: classifier(cfg),
		Lookahead:  cfg.Lookahead(),
		Factory:    &fc,
		Bus:        bus,
		Logger:     log.Component("engine"),
	})
	if _, err := eng.Seed(ctx); err != nil {
		_ = store.Close()
		logs.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}

	cfgm.SetLogger(log.Component("config"))
	return &App{
		cfgm:   cfgm,
		cfg:    cfg,
		logs:   logs,
		log:    log,
		store:  store,
		bus:    bus,
		engine: eng,
	}, nil
}

func (a *App) Engine() *engine.Engine { return a.engine }

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Logger() logx.Logger { return a.log }

// Close releases the store and flushes logs. It is used by one-shot
// commands; Serve closes on its own.
func (a *App) Close() error {
	err := a.store.Close()
	_ = a.logs.Close()
	return err
}
