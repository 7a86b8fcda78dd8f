package config

import (
	"strings"

	"termbot/internal/metrics"
	logx "termbot/pkg/logx"
)

// Summarize returns safe structured attrs describing cfg for the startup
// log. It never includes secrets or chat IDs.
func Summarize(cfg *Config) []logx.Field {
	if cfg == nil {
		cfg = &Config{}
	}
	names := make([]string, 0, len(cfg.Scheduler.Tasks))
	for _, t := range cfg.Scheduler.Tasks {
		names = append(names, t.Name+"="+strings.TrimSpace(t.Schedule))
	}

	attrs := []logx.Field{
		logx.String("term.start", cfg.Term.Start),
		logx.String("term.end", cfg.Term.End),
		logx.String("producer.driver", orDefault(cfg.Producer.Driver, "local")),
		logx.String("publisher.driver", orDefault(cfg.Publisher.Driver, "twitter")),
		logx.String("scheduler.timezone", orDefault(cfg.Scheduler.Timezone, "Local")),
		logx.String("scheduler.tasks", strings.Join(names, ",")),
		logx.Int("retry.max_attempts", cfg.Retry.MaxAttempts),
		logx.String("retry.delay", cfg.Retry.Delay),
		logx.String("logging.level", cfg.Logging.Level),
		logx.Bool("logging.telegram", cfg.Logging.Telegram.Enabled),
		logx.Bool("systemd.notify", cfg.Systemd.Notify),
	}
	if cfg.Storage != nil {
		attrs = append(attrs, logx.String("storage.driver", orDefault(cfg.Storage.Driver, "none")))
	}
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		attrs = append(attrs, logx.String("metrics.addr", orDefault(cfg.Metrics.Addr, metrics.DefaultAddr)))
	}
	return attrs
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
