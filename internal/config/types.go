package config

type Config struct {
	Game    GameConfig    `json:"game"`
	Overlap OverlapConfig `json:"overlap,omitempty"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`

	// Scheduler drives the periodic sweep and reset jobs in serve mode.
	Scheduler SchedulerConfig `json:"scheduler"`

	Telegram TelegramConfig `json:"telegram,omitempty"`

	Status StatusConfig `json:"status,omitempty"`
}

// GameConfig describes the server clock.
//
// Example:
//
//	"game": { "server_offset": "UTC-2", "reset_hour": 0, "lookahead_slots": 48 }
type GameConfig struct {
	// ServerOffset is a fixed UTC offset ("UTC-2", "+05:30"). Empty means UTC.
	ServerOffset string `json:"server_offset"`
	// ResetHour is the server-clock hour the game day starts at (0..23).
	ResetHour int `json:"reset_hour"`
	// LookaheadSlots bounds the next-double and next-drone scans. 0 uses 48.
	LookaheadSlots int `json:"lookahead_slots,omitempty"`
	// Catalog optionally points to a YAML file replacing the built-in factory data.
	Catalog string `json:"catalog,omitempty"`
}

// OverlapConfig extends the built-in category synonym table.
// Keys are category roots ("Hero", "Base"); values are extra keywords.
type OverlapConfig struct {
	Synonyms map[string][]string `json:"synonyms,omitempty"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./raceplan_data" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards log lines to telegram.notify_chat_id.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SchedulerConfig controls the background jobs of serve mode.
//
// Sweep accepts anything robfig/cron understands ("@every 1m", "*/5 * * * *").
type SchedulerConfig struct {
	Enabled bool   `json:"enabled"`
	Sweep   string `json:"sweep,omitempty"`
	// NotifyReset publishes a game.reset event at every daily reset.
	NotifyReset bool `json:"notify_reset"`
}

type TelegramConfig struct {
	Enabled      bool    `json:"enabled"`
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	NotifyChatID int64   `json:"notify_chat_id,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

// StatusConfig controls the optional HTTP status endpoint of serve mode.
//
// Example:
//
//	"status": { "enabled": true, "addr": "127.0.0.1:6060", "pprof": true }
//
// A non-loopback addr requires a token.
type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
	Pprof   bool   `json:"pprof,omitempty"`
}
