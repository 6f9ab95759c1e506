package router

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	rtsup "raceplan/internal/runtime/supervisor"
)

// SupervisorRegistry is a thread-safe registry of subsystem supervisors
// reported by /status.
type SupervisorRegistry struct {
	mu sync.RWMutex
	m  map[string]*rtsup.Supervisor
}

func NewSupervisorRegistry() *SupervisorRegistry {
	return &SupervisorRegistry{m: map[string]*rtsup.Supervisor{}}
}

// Set registers (or replaces) a supervisor under name. A nil sup deletes.
func (r *SupervisorRegistry) Set(name string, sup *rtsup.Supervisor) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sup == nil {
		delete(r.m, name)
		return
	}
	r.m[name] = sup
}

func (r *SupervisorRegistry) Delete(name string) { r.Set(name, nil) }

// Summary renders one line per supervised goroutine.
func (r *SupervisorRegistry) Summary() string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.m))
	for k := range r.m {
		names = append(names, k)
	}
	sups := make(map[string]*rtsup.Supervisor, len(r.m))
	for k, v := range r.m {
		sups[k] = v
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		for _, st := range sups[name].Snapshot() {
			state := "stopped"
			if st.Active > 0 {
				state = "running"
			}
			fmt.Fprintf(&b, "%s/%s %s restarts=%d panics=%d", name, st.Name, state, st.Restarts, st.Panics)
			if st.LastErr != "" {
				fmt.Fprintf(&b, " last_err=%q", st.LastErr)
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
