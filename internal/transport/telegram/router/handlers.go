package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"raceplan/internal/gametime"
	"raceplan/internal/ledger"
	"raceplan/internal/model"
	"raceplan/internal/override"
	"raceplan/internal/plan"
	"raceplan/internal/render"
)

// Engine is the part of engine.Engine the chat commands drive.
type Engine interface {
	Resolver() gametime.Resolver
	BuildPlan(ctx context.Context, now time.Time) (plan.Plan, error)
	ResolveSlot(now time.Time) gametime.Slot
	ActiveTasks(ctx context.Context, now time.Time) ([]model.ActiveTaskInstance, error)
	Templates(ctx context.Context) ([]model.TaskTemplate, error)
	Quotas(ctx context.Context, now time.Time) ([]ledger.Quota, error)
	Activate(ctx context.Context, name, rarity string, now time.Time) (model.ActiveTaskInstance, error)
	Complete(ctx context.Context, taskID string, now time.Time) (model.ActiveTaskInstance, error)
	ParseBuffStart(raw string, now time.Time) (time.Time, error)
	SetSecretaryBuff(ctx context.Context, role string, start, now time.Time) (model.SecretaryBuff, error)
	ClearSecretaryBuff(ctx context.Context, now time.Time) error
	SecretaryStatus(ctx context.Context, now time.Time) (override.BuffStatus, error)
	CanSwapToday(ctx context.Context, now time.Time) (bool, *model.SlotSwap, error)
	ArmSlotSwap(ctx context.Context, from, to int, now time.Time) (model.SlotSwap, error)
	ClearSlotSwap(ctx context.Context, now time.Time) error
}

// Handlers binds the planner commands to an Engine.
type Handlers struct {
	Engine Engine
	// Now defaults to time.Now.
	Now func() time.Time
	// Supervisors feeds /status; nil hides the command.
	Supervisors *SupervisorRegistry
}

var errUsage = errors.New("bad arguments")

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handlers) renderer() render.Renderer {
	return render.Plain(h.Engine.Resolver().Location())
}

// Commands returns the owner-only planner commands.
func (h *Handlers) Commands() []Command {
	cmds := []Command{
		{Name: "plan", Description: "next six slots", Handle: h.plan},
		{Name: "slot", Description: "current slot", Handle: h.slot},
		{Name: "tasks", Description: "active tasks", Handle: h.tasks},
		{Name: "templates", Description: "templates and quota", Handle: h.templates},
		{Name: "activate", Description: "start a task", Usage: "/activate <template> [rarity]", Handle: h.activate},
		{Name: "complete", Description: "finish a task early", Usage: "/complete <task id>", Handle: h.complete},
		{Name: "buff", Description: "set or show the secretary buff", Usage: "/buff [role] [now|HH:MM|10m|q3]", Handle: h.buff},
		{Name: "buffclear", Description: "clear the secretary buff", Handle: h.buffClear},
		{Name: "swap", Description: "swap two slots today", Usage: "/swap [from] [to]", Handle: h.swap},
		{Name: "swapclear", Description: "clear today's swap", Handle: h.swapClear},
	}
	if h.Supervisors != nil {
		cmds = append(cmds, Command{Name: "status", Description: "runtime status", Handle: h.status})
	}
	for i := range cmds {
		cmds[i].Access = AccessOwnerOnly
		cmds[i].Timeout = 10 * time.Second
	}
	return cmds
}

func (h *Handlers) plan(ctx context.Context, req *Request) error {
	p, err := h.Engine.BuildPlan(ctx, h.now())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	h.renderer().Plan(&buf, p)
	return req.Reply(ctx, buf.String())
}

func (h *Handlers) slot(ctx context.Context, req *Request) error {
	now := h.now()
	var buf bytes.Buffer
	h.renderer().Slot(&buf, h.Engine.ResolveSlot(now), now)
	return req.Reply(ctx, buf.String())
}

func (h *Handlers) tasks(ctx context.Context, req *Request) error {
	now := h.now()
	tasks, err := h.Engine.ActiveTasks(ctx, now)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	h.renderer().Tasks(&buf, tasks, now)
	return req.Reply(ctx, buf.String())
}

func (h *Handlers) templates(ctx context.Context, req *Request) error {
	tpls, err := h.Engine.Templates(ctx)
	if err != nil {
		return err
	}
	quotas, err := h.Engine.Quotas(ctx, h.now())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	h.renderer().Templates(&buf, tpls, quotas)
	return req.Reply(ctx, buf.String())
}

// splitRarity treats a trailing rarity token as the rarity; the rest is the
// template name.
func splitRarity(args []string) (name, rarity string) {
	if n := len(args); n > 1 {
		if _, ok := model.ParseRarity(args[n-1]); ok {
			return strings.Join(args[:n-1], " "), args[n-1]
		}
	}
	return strings.Join(args, " "), ""
}

func (h *Handlers) activate(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("%w: usage /activate <template> [rarity]", errUsage)
	}
	name, rarity := splitRarity(req.Args)
	now := h.now()
	inst, err := h.Engine.Activate(ctx, name, rarity, now)
	if err != nil {
		return err
	}
	end := inst.EndUTC.In(h.Engine.Resolver().Location())
	return req.Reply(ctx, fmt.Sprintf("started %s\nid %s\nends %s (%s)", inst.TaskName, inst.TaskID,
		end.Format("15:04"), gametime.Countdown(now, inst.EndUTC)))
}

func (h *Handlers) complete(ctx context.Context, req *Request) error {
	if len(req.Args) != 1 {
		return fmt.Errorf("%w: usage /complete <task id>", errUsage)
	}
	inst, err := h.Engine.Complete(ctx, req.Args[0], h.now())
	if err != nil {
		return err
	}
	return req.Reply(ctx, "completed "+inst.TaskName)
}

func (h *Handlers) buff(ctx context.Context, req *Request) error {
	now := h.now()
	var buf bytes.Buffer
	if len(req.Args) == 0 {
		st, err := h.Engine.SecretaryStatus(ctx, now)
		if err != nil {
			return err
		}
		h.renderer().Buff(&buf, st, now)
		if st.Phase == override.Idle {
			buf.WriteString("\n")
			h.renderer().Roster(&buf)
		}
		return req.Reply(ctx, buf.String())
	}
	start, err := h.Engine.ParseBuffStart(strings.Join(req.Args[1:], " "), now)
	if err != nil {
		return err
	}
	if _, err := h.Engine.SetSecretaryBuff(ctx, req.Args[0], start, now); err != nil {
		return err
	}
	st, err := h.Engine.SecretaryStatus(ctx, now)
	if err != nil {
		return err
	}
	h.renderer().Buff(&buf, st, now)
	return req.Reply(ctx, buf.String())
}

func (h *Handlers) buffClear(ctx context.Context, req *Request) error {
	if err := h.Engine.ClearSecretaryBuff(ctx, h.now()); err != nil {
		return err
	}
	return req.Reply(ctx, "secretary buff cleared")
}

func (h *Handlers) swap(ctx context.Context, req *Request) error {
	now := h.now()
	if len(req.Args) == 0 {
		ok, cur, err := h.Engine.CanSwapToday(ctx, now)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		h.renderer().Swap(&buf, ok, cur)
		return req.Reply(ctx, buf.String())
	}
	if len(req.Args) != 2 {
		return fmt.Errorf("%w: usage /swap <from> <to>", errUsage)
	}
	from, err1 := strconv.Atoi(req.Args[0])
	to, err2 := strconv.Atoi(req.Args[1])
	if err1 != nil || err2 != nil {
		return fmt.Errorf("%w: slots are numbers 1-%d", errUsage, model.SlotCount)
	}
	sw, err := h.Engine.ArmSlotSwap(ctx, from, to, now)
	if err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf("swapped slots %d <-> %d for %s", sw.FromSlot, sw.ToSlot, sw.GameDate))
}

func (h *Handlers) swapClear(ctx context.Context, req *Request) error {
	if err := h.Engine.ClearSlotSwap(ctx, h.now()); err != nil {
		return err
	}
	return req.Reply(ctx, "swap cleared")
}

func (h *Handlers) status(ctx context.Context, req *Request) error {
	s := h.Supervisors.Summary()
	if s == "" {
		s = "no supervisors registered"
	}
	return req.Reply(ctx, s)
}
