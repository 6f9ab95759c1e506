package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "raceplan/pkg/logx"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 30 * time.Second

// Job runs one scheduled tick. now is the trigger instant.
type Job func(ctx context.Context, now time.Time) error

type jobDef struct {
	name    string
	spec    string
	timeout time.Duration
	run     Job
	entryID cron.EntryID
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type Service struct {
	mu   sync.Mutex
	log  logx.Logger
	loc  *time.Location
	c    *cron.Cron
	ctx  context.Context
	defs []*jobDef

	now func() time.Time
}

func New(loc *time.Location, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{log: log, loc: loc, ctx: context.Background(), now: time.Now}
}

// Add registers a job. Jobs added after Start are scheduled immediately.
func (s *Service) Add(name, schedule string, timeout time.Duration, run Job) error {
	spec, err := ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.defs {
		if d.name == name {
			return fmt.Errorf("job %s already registered", name)
		}
	}
	d := &jobDef{name: name, spec: spec, timeout: timeout, run: run}
	s.defs = append(s.defs, d)
	if s.c != nil {
		return s.scheduleLocked(d)
	}
	return nil
}

func (s *Service) scheduleLocked(d *jobDef) error {
	id, err := s.c.AddFunc(d.spec, func() { s.fire(d) })
	if err != nil {
		return fmt.Errorf("job %s: %w", d.name, err)
	}
	d.entryID = id
	return nil
}

// fire runs one tick of d with a timeout and panic guard.
func (s *Service) fire(d *jobDef) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()
	start := s.now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return d.run(ctx, start)
	}()
	took := time.Since(start)
	if err != nil {
		s.log.Warn("job failed", logx.String("job", d.name), logx.Duration("took", took), logx.Err(err))
		return
	}
	s.log.Trace("job done", logx.String("job", d.name), logx.Duration("took", took))
}

// Start begins triggering. Runs of a job never overlap.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.ctx = ctx
	if err := s.startLocked(); err != nil {
		return err
	}
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("jobs", len(s.defs)))
	return nil
}

func (s *Service) startLocked() error {
	s.c = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})),
		cron.WithLogger(cronLogger{s.log}),
	)
	for _, d := range s.defs {
		if err := s.scheduleLocked(d); err != nil {
			return err
		}
	}
	s.c.Start()
	return nil
}

// Relocate moves every job to a new zone, restarting the cron if running.
func (s *Service) Relocate(loc *time.Location) error {
	if loc == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc.String() == loc.String() {
		return nil
	}
	s.loc = loc
	if s.c == nil {
		return nil
	}
	<-s.c.Stop().Done()
	s.log.Info("scheduler relocated", logx.String("tz", loc.String()))
	return s.startLocked()
}

// Reschedule replaces the spec of a registered job.
func (s *Service) Reschedule(name, schedule string) error {
	spec, err := ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.defs {
		if d.name != name {
			continue
		}
		if d.spec == spec {
			return nil
		}
		d.spec = spec
		if s.c == nil {
			return nil
		}
		s.c.Remove(d.entryID)
		return s.scheduleLocked(d)
	}
	return fmt.Errorf("job %s not registered", name)
}

// Stop halts triggering and waits for running jobs until ctx ends.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// Jobs lists registered jobs by name.
func (s *Service) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.defs))
	for _, d := range s.defs {
		info := JobInfo{Name: d.name, Spec: d.spec}
		if s.c != nil {
			e := s.c.Entry(d.entryID)
			info.Next, info.Prev = e.Next, e.Prev
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger routes robfig/cron's own logging to logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Trace("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Warn("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
