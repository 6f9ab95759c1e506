package config

import (
	"reflect"
	"sort"
	"strings"

	logx "raceplan/pkg/logx"
)

// SummarizeConfigChange returns the changed section names and safe log
// fields describing the new values. The bot token is never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Game != newCfg.Game {
		changed = append(changed, "game")
		attrs = append(attrs,
			logx.String("game.server_offset", strings.TrimSpace(newCfg.Game.ServerOffset)),
			logx.Int("game.reset_hour", newCfg.Game.ResetHour),
			logx.Int("game.lookahead_slots", newCfg.Lookahead()),
			logx.Bool("game.catalog_set", strings.TrimSpace(newCfg.Game.Catalog) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Overlap.Synonyms, newCfg.Overlap.Synonyms) {
		changed = append(changed, "overlap")
		roots := make([]string, 0, len(newCfg.Overlap.Synonyms))
		for k := range newCfg.Overlap.Synonyms {
			roots = append(roots, k)
		}
		sort.Strings(roots)
		attrs = append(attrs, logx.Strings("overlap.roots", roots))
	}

	oS, nS := oldCfg.Storage, newCfg.Storage
	if strings.TrimSpace(oS.Driver) != strings.TrimSpace(nS.Driver) ||
		strings.TrimSpace(oS.Path) != strings.TrimSpace(nS.Path) ||
		strings.TrimSpace(oS.BusyTimeout) != strings.TrimSpace(nS.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(nS.BusyTimeout)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.sweep", newCfg.SweepSpec()),
			logx.Bool("scheduler.notify_reset", newCfg.Scheduler.NotifyReset),
		)
	}

	oT, nT := oldCfg.Telegram, newCfg.Telegram
	if oT.Enabled != nT.Enabled ||
		oT.Token != nT.Token ||
		!reflect.DeepEqual(oT.OwnerUserIDs, nT.OwnerUserIDs) ||
		oT.NotifyChatID != nT.NotifyChatID ||
		strings.TrimSpace(oT.PollTimeout) != strings.TrimSpace(nT.PollTimeout) ||
		oT.RatePerSec != nT.RatePerSec {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", nT.Enabled),
			logx.Bool("telegram.token_changed", oT.Token != nT.Token),
			logx.Int("telegram.owner_count", len(nT.OwnerUserIDs)),
			logx.Bool("telegram.notify_chat_set", nT.NotifyChatID != 0),
			logx.String("telegram.poll_timeout", strings.TrimSpace(nT.PollTimeout)),
		)
	}

	if oldCfg.Status != newCfg.Status {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Bool("status.enabled", newCfg.Status.Enabled),
			logx.String("status.addr", newCfg.StatusAddr()),
			logx.Bool("status.token_set", newCfg.Status.Token != ""),
			logx.Bool("status.pprof", newCfg.Status.Pprof),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired reports changed sections that serve mode cannot apply live.
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		switch s {
		case "storage", "telegram", "status":
			out = append(out, s)
		}
	}
	return out
}
