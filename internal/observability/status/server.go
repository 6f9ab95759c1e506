// Package status serves a small read-only HTTP view of a running planner:
// liveness, the current plan as JSON, goroutine health and, optionally,
// net/http/pprof.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"time"

	"raceplan/internal/model"
	"raceplan/internal/plan"
	logx "raceplan/pkg/logx"
)

// Planner is the part of the engine the server reads from.
type Planner interface {
	BuildPlan(ctx context.Context, now time.Time) (plan.Plan, error)
	ActiveTasks(ctx context.Context, now time.Time) ([]model.ActiveTaskInstance, error)
}

type Config struct {
	Addr  string
	Token string
	Pprof bool
}

type Server struct {
	cfg     Config
	planner Planner
	summary func() string
	now     func() time.Time
	log     logx.Logger
}

// New builds a server. summary may be nil.
func New(cfg Config, planner Planner, summary func() string, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, planner: planner, summary: summary, now: time.Now, log: log}
}

// Handler returns the routes without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withAuth(s.cfg.Token, h) }

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/plan", wrap(s.handlePlan))
	mux.HandleFunc("/tasks", wrap(s.handleTasks))
	mux.HandleFunc("/supervisors", wrap(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if s.summary == nil {
			return
		}
		_, _ = w.Write([]byte(s.summary()))
	}))

	if s.cfg.Pprof {
		mux.HandleFunc("/debug/pprof/", wrap(hpprof.Index))
		mux.HandleFunc("/debug/pprof/cmdline", wrap(hpprof.Cmdline))
		mux.HandleFunc("/debug/pprof/profile", wrap(hpprof.Profile))
		mux.HandleFunc("/debug/pprof/symbol", wrap(hpprof.Symbol))
		mux.HandleFunc("/debug/pprof/trace", wrap(hpprof.Trace))
	}
	return mux
}

// Run listens on cfg.Addr until ctx ends. A nil return means ctx ended.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("status server started",
		logx.String("addr", ln.Addr().String()),
		logx.Bool("token_set", s.cfg.Token != ""),
		logx.Bool("pprof", s.cfg.Pprof),
	)
	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("status server exited unexpectedly")
	}
	return err
}

type slotView struct {
	Day      string    `json:"day"`
	Index    int       `json:"slot"`
	GameDate string    `json:"game_date"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type rowView struct {
	slotView
	Current       bool     `json:"current,omitempty"`
	Event         string   `json:"event"`
	Task          string   `json:"task,omitempty"`
	Points        string   `json:"points,omitempty"`
	Swapped       bool     `json:"swapped,omitempty"`
	Double        bool     `json:"double"`
	Matched       []string `json:"matched,omitempty"`
	SpecialEvents []string `json:"special_events,omitempty"`
	ActiveTasks   []string `json:"active_tasks,omitempty"`
	EndingTasks   []string `json:"ending_tasks,omitempty"`
	Secretary     bool     `json:"secretary,omitempty"`
}

type upcomingView struct {
	slotView
	Event  string `json:"event"`
	Starts string `json:"starts"`
}

type planView struct {
	Now        time.Time       `json:"now"`
	NextReset  time.Time       `json:"next_reset"`
	SlotEndsIn string          `json:"slot_ends_in"`
	Rows       []rowView       `json:"rows"`
	NextDouble *upcomingView   `json:"next_double,omitempty"`
	NextDrone  *upcomingView   `json:"next_drone,omitempty"`
	Secretary  string          `json:"secretary"`
	Swap       *model.SlotSwap `json:"swap,omitempty"`
	Skipped    []string        `json:"skipped,omitempty"`
}

func newSlotView(p plan.Plan, i int) slotView {
	sl := p.Rows[i].Slot
	return slotView{Day: sl.Day.String(), Index: sl.Index, GameDate: sl.GameDate, Start: sl.Start, End: sl.End}
}

func toView(p plan.Plan) planView {
	v := planView{
		Now:        p.Now,
		NextReset:  p.NextReset,
		SlotEndsIn: p.SlotEndsIn.Round(time.Second).String(),
		Secretary:  p.Secretary.Phase.String(),
		Swap:       p.Swap,
	}
	for i, r := range p.Rows {
		v.Rows = append(v.Rows, rowView{
			slotView:      newSlotView(p, i),
			Current:       r.Current,
			Event:         r.Event,
			Task:          r.Task,
			Points:        r.Points,
			Swapped:       r.Swapped,
			Double:        r.Double,
			Matched:       r.Matched,
			SpecialEvents: r.SpecialEvents,
			ActiveTasks:   r.ActiveTasks,
			EndingTasks:   r.EndingTasks,
			Secretary:     r.Secretary,
		})
	}
	up := func(u *plan.Upcoming) *upcomingView {
		if u == nil {
			return nil
		}
		return &upcomingView{
			slotView: slotView{Day: u.Slot.Day.String(), Index: u.Slot.Index, GameDate: u.Slot.GameDate, Start: u.Slot.Start, End: u.Slot.End},
			Event:    u.Event,
			Starts:   u.Starts,
		}
	}
	v.NextDouble = up(p.NextDouble)
	v.NextDrone = up(p.NextDrone)
	for _, err := range p.Skipped {
		v.Skipped = append(v.Skipped, err.Error())
	}
	return v
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.planner.BuildPlan(r.Context(), s.now())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, toView(p))
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.planner.ActiveTasks(r.Context(), s.now())
	if err != nil {
		s.fail(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.ActiveTaskInstance{}
	}
	writeJSON(w, tasks)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Warn("status request failed", logx.Err(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// withAuth accepts "Authorization: Bearer <token>" or ?token=<token>.
func withAuth(token string, h http.HandlerFunc) http.HandlerFunc {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if got == tok {
				h(w, r)
				return
			}
			unauthorized(w)
			return
		}
		const p = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
			h(w, r)
			return
		}
		unauthorized(w)
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
