package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"raceplan/internal/model"
	logx "raceplan/pkg/logx"
)

// fileStore keeps one JSON document per table under a directory:
//
//	schedule.json, special_events.json, templates.json,
//	active_instances.json, instance_history.json,
//	secretary_buff.json, slot_swap.json
//
// Writes go to <name>.tmp and are renamed over the target. A missing file
// reads as an empty table.
type fileStore struct {
	fs  afero.Fs
	dir string
	log logx.Logger

	mu     sync.Mutex
	closed bool
}

const (
	fileSchedule  = "schedule.json"
	fileEvents    = "special_events.json"
	fileTemplates = "templates.json"
	fileActive    = "active_instances.json"
	fileHistory   = "instance_history.json"
	fileBuff      = "secretary_buff.json"
	fileSwap      = "slot_swap.json"
)

// OpenFile opens (creating if needed) a file store rooted at dir on fs.
func OpenFile(fs afero.Fs, dir string, log logx.Logger) (Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{fs: fs, dir: dir, log: log}, nil
}

func (s *fileStore) path(name string) string { return filepath.Join(s.dir, name) }

// read decodes name into v. ok is false when the file does not exist.
func (s *fileStore) read(name string, v any) (ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	b, err := afero.ReadFile(s.fs, s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (s *fileStore) write(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	target := s.path(name)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, append(b, '\n'), 0o600); err != nil {
		return err
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	s.log.Trace("table written", logx.String("file", name), logx.Int("bytes", len(b)))
	return nil
}

func (s *fileStore) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	err := s.fs.Remove(s.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) LoadSchedule(context.Context) (model.Schedule, error) {
	var sc model.Schedule
	_, err := s.read(fileSchedule, &sc)
	return sc, err
}

func (s *fileStore) SaveSchedule(_ context.Context, sc model.Schedule) error {
	return s.write(fileSchedule, sc)
}

func (s *fileStore) LoadSpecialEvents(context.Context) ([]model.SpecialEvent, error) {
	var out []model.SpecialEvent
	_, err := s.read(fileEvents, &out)
	return out, err
}

func (s *fileStore) SaveSpecialEvents(_ context.Context, events []model.SpecialEvent) error {
	return s.write(fileEvents, nonNil(events))
}

func (s *fileStore) LoadTemplates(context.Context) ([]model.TaskTemplate, error) {
	var out []model.TaskTemplate
	_, err := s.read(fileTemplates, &out)
	return out, err
}

func (s *fileStore) SaveTemplates(_ context.Context, templates []model.TaskTemplate) error {
	return s.write(fileTemplates, nonNil(templates))
}

func (s *fileStore) LoadActiveInstances(context.Context) ([]model.ActiveTaskInstance, error) {
	var out []model.ActiveTaskInstance
	_, err := s.read(fileActive, &out)
	return out, err
}

func (s *fileStore) SaveActiveInstances(_ context.Context, in []model.ActiveTaskInstance) error {
	return s.write(fileActive, nonNil(in))
}

func (s *fileStore) LoadInstanceHistory(context.Context) ([]model.ActiveTaskInstance, error) {
	var out []model.ActiveTaskInstance
	_, err := s.read(fileHistory, &out)
	return out, err
}

func (s *fileStore) SaveInstanceHistory(_ context.Context, h []model.ActiveTaskInstance) error {
	return s.write(fileHistory, nonNil(h))
}

func (s *fileStore) LoadSecretaryBuff(context.Context) (*model.SecretaryBuff, error) {
	var b model.SecretaryBuff
	ok, err := s.read(fileBuff, &b)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

func (s *fileStore) SaveSecretaryBuff(_ context.Context, buff *model.SecretaryBuff) error {
	if buff == nil {
		return s.remove(fileBuff)
	}
	return s.write(fileBuff, buff)
}

func (s *fileStore) LoadSlotSwap(context.Context) (*model.SlotSwap, error) {
	var sw model.SlotSwap
	ok, err := s.read(fileSwap, &sw)
	if err != nil || !ok || sw.GameDate == "" {
		return nil, err
	}
	return &sw, nil
}

func (s *fileStore) SaveSlotSwap(_ context.Context, swap *model.SlotSwap) error {
	if swap == nil {
		return s.remove(fileSwap)
	}
	return s.write(fileSwap, swap)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// nonNil keeps empty tables as "[]" on disk.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
