package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"raceplan/internal/gametime"
	"raceplan/internal/scheduler"
	"raceplan/internal/storage"
	logx "raceplan/pkg/logx"
)

// Defaults applied by the accessors below when a field is omitted.
const (
	DefaultLookahead   = 48
	DefaultSweep       = "@every 1m"
	DefaultPollTimeout = 10 * time.Second
	DefaultBusyTimeout = 5 * time.Second
	DefaultStatusAddr  = "127.0.0.1:6060"
)

// Validate checks values the JSON decoder cannot. It returns every problem
// found, joined.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if _, err := gametime.ParseOffset(c.Game.ServerOffset); err != nil {
		errs = append(errs, fmt.Errorf("game.server_offset: %w", err))
	}
	if c.Game.ResetHour < 0 || c.Game.ResetHour > 23 {
		errs = append(errs, fmt.Errorf("game.reset_hour: %d out of range 0..23", c.Game.ResetHour))
	}
	if c.Game.LookaheadSlots < 0 {
		errs = append(errs, errors.New("game.lookahead_slots must be >= 0"))
	}

	for root, words := range c.Overlap.Synonyms {
		if strings.TrimSpace(root) == "" {
			errs = append(errs, errors.New("overlap.synonyms: empty category root"))
		}
		for _, w := range words {
			if strings.TrimSpace(w) == "" {
				errs = append(errs, fmt.Errorf("overlap.synonyms.%s: empty keyword", root))
			}
		}
	}

	if !storage.ValidDriver(c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path is required for file and sqlite drivers"))
		}
	}
	if _, err := durationField("storage.busy_timeout", c.Storage.BusyTimeout, DefaultBusyTimeout); err != nil {
		errs = append(errs, err)
	}

	if lvl := strings.TrimSpace(c.Logging.Level); lvl != "" && !logx.ValidLevel(lvl) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", lvl))
	}
	if lvl := strings.TrimSpace(c.Logging.Telegram.MinLevel); lvl != "" && !logx.ValidLevel(lvl) {
		errs = append(errs, fmt.Errorf("logging.telegram.min_level: unknown level %q", lvl))
	}
	if c.Logging.Telegram.RatePerSec < 0 {
		errs = append(errs, errors.New("logging.telegram.rate_per_sec must be >= 0"))
	}

	if err := scheduler.Validate(c.SweepSpec()); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.sweep: %w", err))
	}

	if c.Telegram.Enabled {
		if strings.TrimSpace(c.Telegram.Token) == "" {
			errs = append(errs, errors.New("telegram.token is required when telegram is enabled"))
		}
		if len(c.Telegram.OwnerUserIDs) == 0 {
			errs = append(errs, errors.New("telegram.owner_user_ids must not be empty"))
		}
	}
	if c.Logging.Telegram.Enabled && c.Telegram.NotifyChatID == 0 {
		errs = append(errs, errors.New("logging.telegram needs telegram.notify_chat_id"))
	}
	if _, err := durationField("telegram.poll_timeout", c.Telegram.PollTimeout, DefaultPollTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.Telegram.RatePerSec < 0 {
		errs = append(errs, errors.New("telegram.rate_per_sec must be >= 0"))
	}

	if c.Status.Enabled {
		addr := c.StatusAddr()
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("status.addr: %w", err))
		} else if strings.TrimSpace(c.Status.Token) == "" && !isLoopback(addr) {
			errs = append(errs, errors.New("status.token is required for a non-loopback status.addr"))
		}
	}

	return errors.Join(errs...)
}

// Location returns the server zone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := gametime.ParseOffset(c.Game.ServerOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Resolver builds the game clock described by the game section.
func (c *Config) Resolver() gametime.Resolver {
	return gametime.New(c.Location(), c.Game.ResetHour)
}

func (c *Config) Lookahead() int {
	if c.Game.LookaheadSlots <= 0 {
		return DefaultLookahead
	}
	return c.Game.LookaheadSlots
}

func (c *Config) SweepSpec() string {
	if s := strings.TrimSpace(c.Scheduler.Sweep); s != "" {
		return s
	}
	return DefaultSweep
}

// StorageOptions maps the storage section onto the driver config.
func (c *Config) StorageOptions() storage.Config {
	busy, _ := durationField("storage.busy_timeout", c.Storage.BusyTimeout, DefaultBusyTimeout)
	return storage.Config{
		Driver:      strings.TrimSpace(c.Storage.Driver),
		Path:        strings.TrimSpace(c.Storage.Path),
		BusyTimeout: busy,
	}
}

// LogOptions maps the logging section onto logx.
func (c *Config) LogOptions() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
		Chat: logx.ChatConfig{
			Enabled:    c.Logging.Telegram.Enabled,
			MinLevel:   c.Logging.Telegram.MinLevel,
			RatePerSec: c.Logging.Telegram.RatePerSec,
		},
	}
}

func (c *Config) StatusAddr() string {
	if a := strings.TrimSpace(c.Status.Addr); a != "" {
		return a
	}
	return DefaultStatusAddr
}

func isLoopback(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func (c *Config) PollTimeout() time.Duration {
	d, _ := durationField("telegram.poll_timeout", c.Telegram.PollTimeout, DefaultPollTimeout)
	return d
}
