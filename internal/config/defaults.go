package config

import "time"

const (
	DefaultImagePath       = "progress_image.png"
	DefaultMessageTemplate = "🔴 ODTÜ'de 2024-2025 güz dönemi ilerlemesi: %{{.Percent}} \n🗓️ Kalan gün sayısı: {{.Remaining}}"

	DefaultPollInterval = 30 * time.Second
	DefaultRetryDelay   = 5 * time.Minute
	DefaultRetryMax     = 3
	DefaultUnit         = 24 * time.Hour
	DefaultTimeout      = 30 * time.Second
)

// Default returns the configuration used when no file exists: the
// 2024-2025 fall term, posted at 10:40 and 17:30 through twitter.
func Default() *Config {
	return &Config{
		Term: TermConfig{Start: "2024-09-30", End: "2025-01-03", Unit: "24h"},
		Message: MessageConfig{
			Template: DefaultMessageTemplate,
		},
		Image:     ImageConfig{Path: DefaultImagePath, Width: 800, Height: 200},
		Producer:  ProducerConfig{Driver: "local"},
		Publisher: PublisherConfig{Driver: "twitter"},
		Scheduler: SchedulerConfig{
			PollInterval: "30s",
			Tasks: []TaskConfig{
				{Name: "morning", Schedule: "10:40"},
				{Name: "evening", Schedule: "17:30"},
			},
		},
		Retry:   RetryConfig{MaxAttempts: DefaultRetryMax, Delay: "5m"},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}
