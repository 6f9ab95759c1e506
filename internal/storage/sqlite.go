package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"raceplan/internal/model"
	logx "raceplan/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

const tsLayout = time.RFC3339Nano

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the engine serializes mutations anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("sqlite store ready", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// replace runs del and then fill inside one transaction.
func (s *sqliteStore) replace(ctx context.Context, del string, fill func(tx *sql.Tx) error) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, del); err != nil {
		_ = tx.Rollback()
		return err
	}
	if fill != nil {
		if err := fill(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ---- schedule ----

func (s *sqliteStore) LoadSchedule(ctx context.Context) (model.Schedule, error) {
	var sc model.Schedule
	rows, err := s.db.QueryContext(ctx, `SELECT type, day, slot, event, task, points FROM schedule ORDER BY type, day, slot`)
	if err != nil {
		return sc, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			typ         string
			day, slot   int
			event, task string
			points      sql.NullString
		)
		if err := rows.Scan(&typ, &day, &slot, &event, &task, &points); err != nil {
			return sc, err
		}
		switch model.ScheduleType(typ) {
		case model.TypeArmsRace:
			sc.ArmsRace = append(sc.ArmsRace, model.ScheduleSlot{
				Day: time.Weekday(day), Slot: slot, Event: event, Task: task, Points: points.String,
			})
		case model.TypeVS:
			e := model.VsDuelEntry{Day: time.Weekday(day), Event: event, Task: task}
			if points.Valid {
				if f, err := strconv.ParseFloat(points.String, 64); err == nil {
					e.Points = &f
				}
			}
			sc.VsDuel = append(sc.VsDuel, e)
		}
	}
	return sc, rows.Err()
}

func (s *sqliteStore) SaveSchedule(ctx context.Context, sc model.Schedule) error {
	return s.replace(ctx, `DELETE FROM schedule`, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO schedule(type, day, slot, event, task, points) VALUES(?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer ins.Close()
		for _, r := range sc.ArmsRace {
			if _, err := ins.ExecContext(ctx, string(model.TypeArmsRace), int(r.Day), r.Slot, r.Event, r.Task, nullStr(r.Points)); err != nil {
				return err
			}
		}
		// VS rows have no slot; keep their order per day as the key.
		seq := map[time.Weekday]int{}
		for _, r := range sc.VsDuel {
			var pts any
			if r.Points != nil {
				pts = strconv.FormatFloat(*r.Points, 'f', -1, 64)
			}
			if _, err := ins.ExecContext(ctx, string(model.TypeVS), int(r.Day), seq[r.Day], r.Event, r.Task, pts); err != nil {
				return err
			}
			seq[r.Day]++
		}
		return nil
	})
}

// ---- special events ----

func (s *sqliteStore) LoadSpecialEvents(ctx context.Context) ([]model.SpecialEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, days, frequency, ref_parity, start_time, end_time, is_default FROM special_events ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SpecialEvent
	for rows.Next() {
		var (
			e    model.SpecialEvent
			days string
			freq string
			def  int
		)
		if err := rows.Scan(&e.Name, &days, &freq, &e.RefParity, &e.Start, &e.End, &def); err != nil {
			return nil, err
		}
		e.Frequency = model.Frequency(freq)
		e.IsDefault = def != 0
		for _, d := range strings.Split(days, ",") {
			if wd, ok := model.ParseWeekday(d); ok {
				e.Days = append(e.Days, wd)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveSpecialEvents(ctx context.Context, events []model.SpecialEvent) error {
	return s.replace(ctx, `DELETE FROM special_events`, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO special_events(name, days, frequency, ref_parity, start_time, end_time, is_default, position) VALUES(?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer ins.Close()
		for i, e := range events {
			names := make([]string, len(e.Days))
			for j, d := range e.Days {
				names[j] = d.String()
			}
			if _, err := ins.ExecContext(ctx, e.Name, strings.Join(names, ","), string(e.Frequency), e.RefParity, e.Start, e.End, boolInt(e.IsDefault), i); err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- templates ----

func (s *sqliteStore) LoadTemplates(ctx context.Context) ([]model.TaskTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, durations, max_daily, category, color, icon, is_default FROM task_templates ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TaskTemplate
	for rows.Next() {
		var (
			t   model.TaskTemplate
			dur string
			def int
		)
		if err := rows.Scan(&t.Name, &dur, &t.MaxDaily, &t.Category, &t.Color, &t.Icon, &def); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(dur), &t.Durations); err != nil {
			return nil, fmt.Errorf("template %q durations: %w", t.Name, err)
		}
		t.IsDefault = def != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveTemplates(ctx context.Context, templates []model.TaskTemplate) error {
	return s.replace(ctx, `DELETE FROM task_templates`, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO task_templates(name, durations, max_daily, category, color, icon, is_default, position) VALUES(?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer ins.Close()
		for i, t := range templates {
			dur, err := json.Marshal(t.Durations)
			if err != nil {
				return err
			}
			if _, err := ins.ExecContext(ctx, t.Name, string(dur), t.MaxDaily, t.Category, t.Color, t.Icon, boolInt(t.IsDefault), i); err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- instances ----

func (s *sqliteStore) loadInstances(ctx context.Context, where string) ([]model.ActiveTaskInstance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, task_name, start_utc, end_utc, duration_minutes, status FROM task_instances WHERE `+where+` ORDER BY start_utc, task_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ActiveTaskInstance
	for rows.Next() {
		var (
			in         model.ActiveTaskInstance
			start, end string
			status     string
		)
		if err := rows.Scan(&in.TaskID, &in.TaskName, &start, &end, &in.DurationMinutes, &status); err != nil {
			return nil, err
		}
		if in.StartUTC, err = time.Parse(tsLayout, start); err != nil {
			return nil, fmt.Errorf("instance %s start: %w", in.TaskID, err)
		}
		if in.EndUTC, err = time.Parse(tsLayout, end); err != nil {
			return nil, fmt.Errorf("instance %s end: %w", in.TaskID, err)
		}
		in.Status = model.InstanceStatus(status)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *sqliteStore) saveInstances(ctx context.Context, del string, list []model.ActiveTaskInstance, status func(model.InstanceStatus) model.InstanceStatus) error {
	return s.replace(ctx, del, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO task_instances(task_id, task_name, start_utc, end_utc, duration_minutes, status) VALUES(?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer ins.Close()
		for _, in := range list {
			if _, err := ins.ExecContext(ctx, in.TaskID, in.TaskName,
				in.StartUTC.UTC().Format(tsLayout), in.EndUTC.UTC().Format(tsLayout),
				in.DurationMinutes, string(status(in.Status))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteStore) LoadActiveInstances(ctx context.Context) ([]model.ActiveTaskInstance, error) {
	return s.loadInstances(ctx, `status = 'active'`)
}

func (s *sqliteStore) SaveActiveInstances(ctx context.Context, list []model.ActiveTaskInstance) error {
	return s.saveInstances(ctx, `DELETE FROM task_instances WHERE status = 'active'`, list,
		func(model.InstanceStatus) model.InstanceStatus { return model.StatusActive })
}

func (s *sqliteStore) LoadInstanceHistory(ctx context.Context) ([]model.ActiveTaskInstance, error) {
	return s.loadInstances(ctx, `status <> 'active'`)
}

func (s *sqliteStore) SaveInstanceHistory(ctx context.Context, list []model.ActiveTaskInstance) error {
	return s.saveInstances(ctx, `DELETE FROM task_instances WHERE status <> 'active'`, list,
		func(st model.InstanceStatus) model.InstanceStatus {
			if st == model.StatusActive || st == "" {
				return model.StatusExpired
			}
			return st
		})
}

// ---- singletons ----

func (s *sqliteStore) LoadSecretaryBuff(ctx context.Context) (*model.SecretaryBuff, error) {
	var kind, start, end string
	err := s.db.QueryRowContext(ctx, `SELECT kind, start_utc, end_utc FROM secretary_buff WHERE id = 1`).Scan(&kind, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b := &model.SecretaryBuff{Kind: model.SecretaryKind(kind)}
	if b.StartUTC, err = time.Parse(tsLayout, start); err != nil {
		return nil, fmt.Errorf("secretary buff start: %w", err)
	}
	if b.EndUTC, err = time.Parse(tsLayout, end); err != nil {
		return nil, fmt.Errorf("secretary buff end: %w", err)
	}
	return b, nil
}

func (s *sqliteStore) SaveSecretaryBuff(ctx context.Context, buff *model.SecretaryBuff) error {
	if buff == nil {
		return s.replace(ctx, `DELETE FROM secretary_buff`, nil)
	}
	return s.replace(ctx, `DELETE FROM secretary_buff`, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO secretary_buff(id, kind, start_utc, end_utc) VALUES(1,?,?,?)`,
			string(buff.Kind), buff.StartUTC.UTC().Format(tsLayout), buff.EndUTC.UTC().Format(tsLayout))
		return err
	})
}

func (s *sqliteStore) LoadSlotSwap(ctx context.Context) (*model.SlotSwap, error) {
	var sw model.SlotSwap
	err := s.db.QueryRowContext(ctx, `SELECT game_date, from_slot, to_slot FROM slot_swap WHERE id = 1`).Scan(&sw.GameDate, &sw.FromSlot, &sw.ToSlot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sw, nil
}

func (s *sqliteStore) SaveSlotSwap(ctx context.Context, swap *model.SlotSwap) error {
	if swap == nil {
		return s.replace(ctx, `DELETE FROM slot_swap`, nil)
	}
	return s.replace(ctx, `DELETE FROM slot_swap`, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO slot_swap(id, game_date, from_slot, to_slot) VALUES(1,?,?,?)`,
			swap.GameDate, swap.FromSlot, swap.ToSlot)
		return err
	})
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
