package storage

import (
	"context"
	"sync"
	"time"

	"raceplan/internal/model"
)

// memoryStore keeps copies of every table in process memory.
type memoryStore struct {
	mu sync.Mutex

	closed    bool
	schedule  model.Schedule
	events    []model.SpecialEvent
	templates []model.TaskTemplate
	active    []model.ActiveTaskInstance
	history   []model.ActiveTaskInstance
	buff      *model.SecretaryBuff
	swap      *model.SlotSwap
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store { return &memoryStore{} }

func (s *memoryStore) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	return nil
}

func (s *memoryStore) LoadSchedule(context.Context) (model.Schedule, error) {
	if err := s.lock(); err != nil {
		return model.Schedule{}, err
	}
	defer s.mu.Unlock()
	return cloneSchedule(s.schedule), nil
}

func (s *memoryStore) SaveSchedule(_ context.Context, sc model.Schedule) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.schedule = cloneSchedule(sc)
	return nil
}

func (s *memoryStore) LoadSpecialEvents(context.Context) ([]model.SpecialEvent, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return cloneEvents(s.events), nil
}

func (s *memoryStore) SaveSpecialEvents(_ context.Context, events []model.SpecialEvent) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.events = cloneEvents(events)
	return nil
}

func (s *memoryStore) LoadTemplates(context.Context) ([]model.TaskTemplate, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return cloneTemplates(s.templates), nil
}

func (s *memoryStore) SaveTemplates(_ context.Context, templates []model.TaskTemplate) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.templates = cloneTemplates(templates)
	return nil
}

func (s *memoryStore) LoadActiveInstances(context.Context) ([]model.ActiveTaskInstance, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]model.ActiveTaskInstance(nil), s.active...), nil
}

func (s *memoryStore) SaveActiveInstances(_ context.Context, in []model.ActiveTaskInstance) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.active = append([]model.ActiveTaskInstance(nil), in...)
	return nil
}

func (s *memoryStore) LoadInstanceHistory(context.Context) ([]model.ActiveTaskInstance, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]model.ActiveTaskInstance(nil), s.history...), nil
}

func (s *memoryStore) SaveInstanceHistory(_ context.Context, h []model.ActiveTaskInstance) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.history = append([]model.ActiveTaskInstance(nil), h...)
	return nil
}

func (s *memoryStore) LoadSecretaryBuff(context.Context) (*model.SecretaryBuff, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if s.buff == nil {
		return nil, nil
	}
	b := *s.buff
	return &b, nil
}

func (s *memoryStore) SaveSecretaryBuff(_ context.Context, buff *model.SecretaryBuff) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if buff == nil {
		s.buff = nil
		return nil
	}
	b := *buff
	s.buff = &b
	return nil
}

func (s *memoryStore) LoadSlotSwap(context.Context) (*model.SlotSwap, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if s.swap == nil {
		return nil, nil
	}
	sw := *s.swap
	return &sw, nil
}

func (s *memoryStore) SaveSlotSwap(_ context.Context, swap *model.SlotSwap) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if swap == nil {
		s.swap = nil
		return nil
	}
	sw := *swap
	s.swap = &sw
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func cloneSchedule(s model.Schedule) model.Schedule {
	return model.Schedule{
		ArmsRace: append([]model.ScheduleSlot(nil), s.ArmsRace...),
		VsDuel:   append([]model.VsDuelEntry(nil), s.VsDuel...),
	}
}

func cloneEvents(in []model.SpecialEvent) []model.SpecialEvent {
	if in == nil {
		return nil
	}
	out := make([]model.SpecialEvent, len(in))
	for i, e := range in {
		e.Days = append([]time.Weekday(nil), e.Days...)
		out[i] = e
	}
	return out
}

func cloneTemplates(in []model.TaskTemplate) []model.TaskTemplate {
	if in == nil {
		return nil
	}
	out := make([]model.TaskTemplate, len(in))
	for i, t := range in {
		d := make(map[model.Rarity]int, len(t.Durations))
		for k, v := range t.Durations {
			d[k] = v
		}
		t.Durations = d
		out[i] = t
	}
	return out
}
