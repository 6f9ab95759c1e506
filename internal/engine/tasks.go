package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raceplan/internal/catalog"
	"raceplan/internal/eventbus"
	"raceplan/internal/ledger"
	"raceplan/internal/model"
	logx "raceplan/pkg/logx"
)

// historyResets is how many resets an expired or completed activation is kept for.
const historyResets = 2

// Templates returns the stored task templates.
func (e *Engine) Templates(ctx context.Context) ([]model.TaskTemplate, error) {
	return e.store.LoadTemplates(ctx)
}

// UpsertTemplate validates tpl and stores it by name (last write wins).
func (e *Engine) UpsertTemplate(ctx context.Context, tpl model.TaskTemplate) error {
	tpl.Name = strings.TrimSpace(tpl.Name)
	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	tpls, err := e.store.LoadTemplates(ctx)
	if err != nil {
		return err
	}
	if i := templateIndex(tpls, tpl.Name); i >= 0 {
		tpls[i] = tpl
	} else {
		tpls = append(tpls, tpl)
	}
	return e.store.SaveTemplates(ctx, tpls)
}

// RestoreDefaultTemplates replaces every factory template with the factory
// set and keeps user-authored templates.
func (e *Engine) RestoreDefaultTemplates(ctx context.Context) ([]model.TaskTemplate, error) {
	fc, err := e.factoryCatalog()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, err := e.store.LoadTemplates(ctx)
	if err != nil {
		return nil, err
	}
	out := catalog.RestoreTemplates(cur, fc.Templates)
	if err := e.store.SaveTemplates(ctx, out); err != nil {
		return nil, err
	}
	e.log.Info("default templates restored", logx.Int("total", len(out)))
	return out, nil
}

func templateIndex(tpls []model.TaskTemplate, name string) int {
	for i, t := range tpls {
		if strings.EqualFold(t.Name, name) {
			return i
		}
	}
	return -1
}

// SweepExpired moves every instance with End <= now into the history and
// returns how many moved.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, n, err := e.sweepLocked(ctx, now)
	return n, err
}

func (e *Engine) sweepLocked(ctx context.Context, now time.Time) ([]model.ActiveTaskInstance, int, error) {
	active, err := e.store.LoadActiveInstances(ctx)
	if err != nil {
		return nil, 0, err
	}
	live, expired := ledger.Sweep(active, now)
	if len(expired) == 0 {
		return live, 0, nil
	}
	if err := e.appendHistoryLocked(ctx, now, expired...); err != nil {
		return nil, 0, err
	}
	if err := e.store.SaveActiveInstances(ctx, live); err != nil {
		return nil, 0, err
	}
	e.log.Debug("expired tasks swept", logx.Int("count", len(expired)), logx.Int("live", len(live)))
	e.publish(eventbus.TasksSwept, now, len(expired))
	return live, len(expired), nil
}

// appendHistoryLocked records finished instances and prunes records older
// than historyResets resets.
func (e *Engine) appendHistoryLocked(ctx context.Context, now time.Time, done ...model.ActiveTaskInstance) error {
	hist, err := e.store.LoadInstanceHistory(ctx)
	if err != nil {
		return err
	}
	cutoff := e.Resolver().DayStart(now).AddDate(0, 0, 1-historyResets)
	hist = ledger.Prune(append(hist, done...), cutoff)
	return e.store.SaveInstanceHistory(ctx, hist)
}

// ActiveTasks sweeps and returns the running instances.
func (e *Engine) ActiveTasks(ctx context.Context, now time.Time) ([]model.ActiveTaskInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	live, _, err := e.sweepLocked(ctx, now)
	return live, err
}

// records returns live instances plus history, the basis of quota counting.
func (e *Engine) recordsLocked(ctx context.Context, now time.Time) (live, all []model.ActiveTaskInstance, err error) {
	live, _, err = e.sweepLocked(ctx, now)
	if err != nil {
		return nil, nil, err
	}
	hist, err := e.store.LoadInstanceHistory(ctx)
	if err != nil {
		return nil, nil, err
	}
	all = append(append([]model.ActiveTaskInstance(nil), live...), hist...)
	return live, all, nil
}

func (e *Engine) templateLocked(ctx context.Context, name string) (model.TaskTemplate, error) {
	tpls, err := e.store.LoadTemplates(ctx)
	if err != nil {
		return model.TaskTemplate{}, err
	}
	i := templateIndex(tpls, strings.TrimSpace(name))
	if i < 0 {
		return model.TaskTemplate{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return tpls[i], nil
}

// CanActivate returns the current quota of the named template.
func (e *Engine) CanActivate(ctx context.Context, name string, now time.Time) (ledger.Quota, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tpl, err := e.templateLocked(ctx, name)
	if err != nil {
		return ledger.Quota{}, err
	}
	_, all, err := e.recordsLocked(ctx, now)
	if err != nil {
		return ledger.Quota{}, err
	}
	return ledger.QuotaFor(tpl, all, e.Resolver().DayStart(now)), nil
}

// Quotas returns the quota of every template, in template order.
func (e *Engine) Quotas(ctx context.Context, now time.Time) ([]ledger.Quota, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tpls, err := e.store.LoadTemplates(ctx)
	if err != nil {
		return nil, err
	}
	_, all, err := e.recordsLocked(ctx, now)
	if err != nil {
		return nil, err
	}
	dayStart := e.Resolver().DayStart(now)
	out := make([]ledger.Quota, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, ledger.QuotaFor(t, all, dayStart))
	}
	return out, nil
}

// Activate starts an instance of the named template. rarity may be empty
// when the template offers exactly one rarity. A full quota returns a
// *QuotaError and leaves state unchanged.
func (e *Engine) Activate(ctx context.Context, name, rarity string, now time.Time) (model.ActiveTaskInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tpl, err := e.templateLocked(ctx, name)
	if err != nil {
		return model.ActiveTaskInstance{}, err
	}
	r, err := pickRarity(tpl, rarity)
	if err != nil {
		return model.ActiveTaskInstance{}, err
	}

	live, all, err := e.recordsLocked(ctx, now)
	if err != nil {
		return model.ActiveTaskInstance{}, err
	}
	q := ledger.QuotaFor(tpl, all, e.Resolver().DayStart(now))
	if !q.Allowed() {
		e.log.Debug("activation denied", logx.String("template", tpl.Name), logx.Int("used", q.Used), logx.Int("max", q.Max))
		return model.ActiveTaskInstance{}, &QuotaError{Template: tpl.Name, Used: q.Used, Max: q.Max}
	}

	inst, err := ledger.NewInstance(e.newID(), tpl, r, now)
	if err != nil {
		return model.ActiveTaskInstance{}, fmt.Errorf("%w: %v", ErrUnknownRarity, err)
	}
	if err := e.store.SaveActiveInstances(ctx, append(live, inst)); err != nil {
		return model.ActiveTaskInstance{}, err
	}
	e.log.Info("task activated",
		logx.String("task", inst.TaskName),
		logx.String("id", inst.TaskID),
		logx.Time("ends", inst.EndUTC),
		logx.Int("used", q.Used+1),
		logx.Int("max", q.Max),
	)
	e.publish(eventbus.TaskActivated, now, inst)
	return inst, nil
}

func pickRarity(tpl model.TaskTemplate, raw string) (model.Rarity, error) {
	avail := tpl.Available()
	if strings.TrimSpace(raw) == "" {
		if len(avail) == 1 {
			return avail[0].Rarity, nil
		}
		return "", fmt.Errorf("%w: %s needs one of %s", ErrUnknownRarity, tpl.Name, rarityList(avail))
	}
	r, ok := model.ParseRarity(raw)
	if !ok || tpl.Durations[r] <= 0 {
		return "", fmt.Errorf("%w: %s has %s, not %q", ErrUnknownRarity, tpl.Name, rarityList(avail), raw)
	}
	return r, nil
}

func rarityList(avail []model.RarityDuration) string {
	names := make([]string, len(avail))
	for i, a := range avail {
		names[i] = string(a.Rarity)
	}
	return strings.Join(names, "/")
}

// Complete ends a running instance early. It stays in the history and keeps
// counting against the day's quota.
func (e *Engine) Complete(ctx context.Context, taskID string, now time.Time) (model.ActiveTaskInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	live, _, err := e.sweepLocked(ctx, now)
	if err != nil {
		return model.ActiveTaskInstance{}, err
	}
	i := ledger.Find(live, strings.TrimSpace(taskID))
	if i < 0 {
		return model.ActiveTaskInstance{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	done := live[i]
	done.Status = model.StatusCompleted
	rest := append(append([]model.ActiveTaskInstance(nil), live[:i]...), live[i+1:]...)

	if err := e.appendHistoryLocked(ctx, now, done); err != nil {
		return model.ActiveTaskInstance{}, err
	}
	if err := e.store.SaveActiveInstances(ctx, rest); err != nil {
		return model.ActiveTaskInstance{}, err
	}
	e.log.Info("task completed", logx.String("task", done.TaskName), logx.String("id", done.TaskID))
	e.publish(eventbus.TaskCompleted, now, done)
	return done, nil
}
