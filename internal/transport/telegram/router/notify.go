package router

import (
	"context"
	"fmt"
	"time"

	"raceplan/internal/eventbus"
	"raceplan/internal/gametime"
	"raceplan/internal/model"
	kit "raceplan/internal/transport"
	logx "raceplan/pkg/logx"
)

// Forwarder relays game.reset and buff.set events to a notify chat.
type Forwarder struct {
	Adapter kit.Adapter
	ChatID  int64
	Loc     *time.Location
	Log     logx.Logger
}

// Run consumes bus until ctx ends.
func (f *Forwarder) Run(ctx context.Context, bus eventbus.Bus) error {
	events, unsubscribe := bus.Subscribe(16)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			text := f.format(ev)
			if text == "" || f.ChatID == 0 {
				continue
			}
			if err := f.Adapter.SendText(ctx, kit.ChatTarget{ChatID: f.ChatID}, text); err != nil {
				f.Log.Warn("notify failed", logx.String("event", ev.Type), logx.Err(err))
			}
		}
	}
}

func (f *Forwarder) format(ev eventbus.Event) string {
	loc := f.Loc
	if loc == nil {
		loc = time.UTC
	}
	switch ev.Type {
	case eventbus.GameReset:
		if s, ok := ev.Data.(gametime.Slot); ok {
			return fmt.Sprintf("🔄 New game day: %s %s", s.Day, s.GameDate)
		}
		return "🔄 New game day"
	case eventbus.BuffSet:
		b, ok := ev.Data.(model.SecretaryBuff)
		if !ok {
			return ""
		}
		role, _ := model.LookupSecretary(string(b.Kind))
		return fmt.Sprintf("%s %s buff %s-%s", role.Icon, b.Kind.Short(),
			b.StartUTC.In(loc).Format("15:04"), b.EndUTC.In(loc).Format("15:04"))
	}
	return ""
}
