package config

// Config is the on-disk configuration (YAML or JSON).
//
// All durations are Go duration strings (e.g. "30s", "5m", "24h").
// Credentials never live here; see LoadCredentials.
type Config struct {
	Term      TermConfig      `json:"term"`
	Message   MessageConfig   `json:"message"`
	Image     ImageConfig     `json:"image"`
	Producer  ProducerConfig  `json:"producer"`
	Publisher PublisherConfig `json:"publisher"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Retry     RetryConfig     `json:"retry"`
	Logging   LoggingConfig   `json:"logging"`

	Storage *StorageConfig `json:"storage,omitempty"`
	Metrics *MetricsConfig `json:"metrics,omitempty"`
	Systemd SystemdConfig  `json:"systemd"`
}

// TermConfig bounds the tracked period. Dates accept "2006-01-02"
// (midnight in the scheduler timezone) or RFC 3339.
type TermConfig struct {
	Start string `json:"start"`
	End   string `json:"end"`
	// Unit is the length of one "remaining" unit. Default: "24h".
	Unit string `json:"unit,omitempty"`
}

// MessageConfig holds the post text as a text/template.
//
// Available fields: {{.Percent}} (formatted), {{.Percentage}} (float),
// {{.Remaining}}, {{.Start}}, {{.End}}, {{.Now}}.
type MessageConfig struct {
	Template string `json:"template,omitempty"`
}

type ImageConfig struct {
	Path   string `json:"path,omitempty"` // default: progress_image.png
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ProducerConfig selects how the bar image is made.
//
//	"producer": { "driver": "remote", "endpoint": "https://quickchart.io/chart", "timeout": "15s" }
type ProducerConfig struct {
	Driver         string `json:"driver,omitempty"` // local (default) | remote
	Endpoint       string `json:"endpoint,omitempty"`
	Timeout        string `json:"timeout,omitempty"`
	BarColor       string `json:"bar_color,omitempty"`
	RemainingColor string `json:"remaining_color,omitempty"`
}

// PublisherConfig selects the social platform. Secrets come from the environment.
type PublisherConfig struct {
	Driver  string `json:"driver,omitempty"` // twitter (default) | telegram
	Timeout string `json:"timeout,omitempty"`

	// Twitter endpoint overrides (proxies, tests).
	UploadURL string `json:"upload_url,omitempty"`
	TweetURL  string `json:"tweet_url,omitempty"`

	// Telegram target chat and optional Bot API base URL.
	ChatID int64  `json:"chat_id,omitempty"`
	APIURL string `json:"api_url,omitempty"`
}

type SchedulerConfig struct {
	PollInterval string       `json:"poll_interval,omitempty"` // default: 30s
	Timezone     string       `json:"timezone,omitempty"`
	Tasks        []TaskConfig `json:"tasks"`
}

// TaskConfig registers one trigger for the post task.
//
// Schedule examples: "10:40", "daily:17:30", "every:6h", "cron:0 10 * * 1-5".
type TaskConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
}

type RetryConfig struct {
	MaxAttempts int    `json:"max_attempts,omitempty"` // default: 3
	Delay       string `json:"delay,omitempty"`        // default: 5m
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

// LoggingTelegram mirrors log lines into a chat. It uses TELEGRAM_BOT_TOKEN.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional run history.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data/runs.jsonl" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// MetricsConfig controls the optional Prometheus listener.
//
// Prefer binding to localhost (e.g. "127.0.0.1:9108").
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9108"
	Path    string `json:"path,omitempty"` // default: "/metrics"
}

// SystemdConfig controls sd_notify integration. It is a no-op outside systemd.
type SystemdConfig struct {
	Notify bool `json:"notify"`
}
