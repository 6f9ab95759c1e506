// Package engine is the stateful facade over the scheduling core. It loads
// records from a storage.Store, runs the pure core packages against them and
// writes back the transitions they report (expiry, lazy clears).
//
// All mutations are serialized by one mutex so several front-ends can share
// an Engine over a single store.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"raceplan/internal/catalog"
	"raceplan/internal/eventbus"
	"raceplan/internal/gametime"
	"raceplan/internal/model"
	"raceplan/internal/overlap"
	"raceplan/internal/plan"
	"raceplan/internal/recurrence"
	"raceplan/internal/storage"
	logx "raceplan/pkg/logx"
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Resolver   gametime.Resolver
	Classifier *overlap.Classifier
	Lookahead  int
	// Factory is the catalog restored by RestoreDefault*.
	Factory *catalog.Catalog
	Bus     eventbus.Bus
	Logger  logx.Logger
	// NewID generates task instance ids.
	NewID func() string
}

type Engine struct {
	mu    sync.Mutex
	store storage.Store
	log   logx.Logger
	bus   eventbus.Bus
	newID func() string

	cfgMu      sync.RWMutex
	resolver   gametime.Resolver
	classifier *overlap.Classifier
	lookahead  int
	factory    *catalog.Catalog
}

func New(store storage.Store, opts Options) *Engine {
	e := &Engine{
		store: store,
		log:   opts.Logger,
		bus:   opts.Bus,
		newID: opts.NewID,
	}
	if e.log.IsZero() {
		e.log = logx.Nop()
	}
	if e.bus == nil {
		e.bus = eventbus.Nop()
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	e.factory = opts.Factory
	e.Configure(opts.Resolver, opts.Classifier, opts.Lookahead)
	return e
}

// Configure swaps the clock, classifier and lookahead. It is safe to call
// while other operations run.
func (e *Engine) Configure(r gametime.Resolver, c *overlap.Classifier, lookahead int) {
	if c == nil {
		c = overlap.New(nil)
	}
	if lookahead <= 0 {
		lookahead = plan.DefaultLookahead
	}
	e.cfgMu.Lock()
	e.resolver, e.classifier, e.lookahead = r, c, lookahead
	e.cfgMu.Unlock()
}

func (e *Engine) settings() (gametime.Resolver, *overlap.Classifier, int) {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.resolver, e.classifier, e.lookahead
}

// Resolver returns the current game clock.
func (e *Engine) Resolver() gametime.Resolver {
	r, _, _ := e.settings()
	return r
}

func (e *Engine) publish(typ string, now time.Time, data any) {
	e.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: data})
}

// ResolveSlot maps now to its game day and slot.
func (e *Engine) ResolveSlot(now time.Time) gametime.Slot {
	return e.Resolver().Resolve(now)
}

// IsEventActive reports whether ev overlaps the slot window starting at
// windowStart. Unparseable events are inactive.
func (e *Engine) IsEventActive(ev model.SpecialEvent, windowStart time.Time) bool {
	return recurrence.IsActive(ev, windowStart)
}

// ClassifyOverlap decides whether an Arms Race row scores double with the
// VS Duel rows of its day.
func (e *Engine) ClassifyOverlap(row model.ScheduleSlot, vs []model.VsDuelEntry) overlap.Result {
	_, c, _ := e.settings()
	return c.Classify(row.Event, row.Task, vs)
}

func (e *Engine) factoryCatalog() (catalog.Catalog, error) {
	if e.factory != nil {
		return *e.factory, nil
	}
	return catalog.Defaults()
}

// Seed stores the factory catalog into an empty store. It reports whether
// anything was written.
func (e *Engine) Seed(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sched, err := e.store.LoadSchedule(ctx)
	if err != nil {
		return false, err
	}
	tpls, err := e.store.LoadTemplates(ctx)
	if err != nil {
		return false, err
	}
	events, err := e.store.LoadSpecialEvents(ctx)
	if err != nil {
		return false, err
	}
	if len(sched.ArmsRace)+len(sched.VsDuel)+len(tpls)+len(events) > 0 {
		return false, nil
	}
	fc, err := e.factoryCatalog()
	if err != nil {
		return false, err
	}
	if err := e.store.SaveSchedule(ctx, fc.Schedule); err != nil {
		return false, err
	}
	if err := e.store.SaveTemplates(ctx, fc.Templates); err != nil {
		return false, err
	}
	if err := e.store.SaveSpecialEvents(ctx, fc.Events); err != nil {
		return false, err
	}
	e.log.Info("store seeded with factory data",
		logx.Int("arms_race_rows", len(fc.Schedule.ArmsRace)),
		logx.Int("templates", len(fc.Templates)),
		logx.Int("events", len(fc.Events)),
	)
	return true, nil
}

// Schedule returns the canonical weekly schedule.
func (e *Engine) Schedule(ctx context.Context) (model.Schedule, error) {
	return e.store.LoadSchedule(ctx)
}

// SetArmsRaceSlot replaces or adds the Arms Race row of (row.Day, row.Slot).
func (e *Engine) SetArmsRaceSlot(ctx context.Context, row model.ScheduleSlot) error {
	if row.Slot < 1 || row.Slot > model.SlotCount {
		return fmt.Errorf("%w: slot %d out of range 1..%d", ErrInvalidRecord, row.Slot, model.SlotCount)
	}
	if row.Event == "" {
		return fmt.Errorf("%w: event name required", ErrInvalidRecord)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sched, err := e.store.LoadSchedule(ctx)
	if err != nil {
		return err
	}
	sched.Upsert(row)
	return e.store.SaveSchedule(ctx, sched)
}

// SpecialEvents returns the stored special events.
func (e *Engine) SpecialEvents(ctx context.Context) ([]model.SpecialEvent, error) {
	return e.store.LoadSpecialEvents(ctx)
}

// UpsertSpecialEvent validates ev and stores it by name (last write wins).
func (e *Engine) UpsertSpecialEvent(ctx context.Context, ev model.SpecialEvent) error {
	if err := recurrence.Validate(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := e.store.LoadSpecialEvents(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range events {
		if events[i].Name == ev.Name {
			events[i] = ev
			replaced = true
		}
	}
	if !replaced {
		events = append(events, ev)
	}
	return e.store.SaveSpecialEvents(ctx, events)
}

// RestoreDefaultEvents replaces factory events with the factory set and keeps
// user-authored ones.
func (e *Engine) RestoreDefaultEvents(ctx context.Context) ([]model.SpecialEvent, error) {
	fc, err := e.factoryCatalog()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, err := e.store.LoadSpecialEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := catalog.RestoreEvents(cur, fc.Events)
	if err := e.store.SaveSpecialEvents(ctx, out); err != nil {
		return nil, err
	}
	e.log.Info("default special events restored", logx.Int("total", len(out)))
	return out, nil
}

// UpcomingEvents lists special-event occurrences starting in [from, to).
// Unusable events are logged and skipped.
func (e *Engine) UpcomingEvents(ctx context.Context, from, to time.Time) ([]recurrence.Occurrence, error) {
	events, err := e.store.LoadSpecialEvents(ctx)
	if err != nil {
		return nil, err
	}
	out, skipped := recurrence.Upcoming(events, from, to, e.Resolver().Location())
	for _, err := range skipped {
		e.log.Warn("special event skipped", logx.Err(err))
	}
	return out, nil
}
