package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"termbot/internal/artifact"
	"termbot/internal/config"
	"termbot/internal/metrics"
	"termbot/internal/publish"
	"termbot/internal/publish/telegram"
	"termbot/internal/publish/twitter"
	"termbot/internal/storage"
	logx "termbot/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config, res *config.Resolved) (storage.Config, bool) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false
	}
	busy := res.StorageBusy
	if busy <= 0 {
		busy = time.Second
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, true
}

func mapMetricsConfig(cfg *config.Config) *metrics.ServerConfig {
	if cfg.Metrics == nil || !cfg.Metrics.Enabled {
		return nil
	}
	// Empty addr and path fall back to the metrics package defaults.
	return &metrics.ServerConfig{
		Addr: strings.TrimSpace(cfg.Metrics.Addr),
		Path: strings.TrimSpace(cfg.Metrics.Path),
	}
}

func mapProducerConfig(cfg *config.Config, res *config.Resolved) artifact.Config {
	return artifact.Config{
		Driver:         strings.ToLower(strings.TrimSpace(cfg.Producer.Driver)),
		Endpoint:       strings.TrimSpace(cfg.Producer.Endpoint),
		Timeout:        res.ProducerTimeout,
		BarColor:       cfg.Producer.BarColor,
		RemainingColor: cfg.Producer.RemainingColor,
	}
}

// buildSession authenticates once at startup. Missing credentials are fatal.
func buildSession(cfg *config.Config, res *config.Resolved, creds config.Credentials) (publish.Session, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Publisher.Driver)) {
	case "", "twitter":
		return twitter.Authenticate(twitter.Credentials{
			APIKey:            creds.APIKey,
			APIKeySecret:      creds.APIKeySecret,
			AccessToken:       creds.AccessToken,
			AccessTokenSecret: creds.AccessTokenSecret,
			BearerToken:       creds.BearerToken,
		}, twitter.Options{
			UploadURL: cfg.Publisher.UploadURL,
			TweetURL:  cfg.Publisher.TweetURL,
			Timeout:   res.PublisherTimeout,
		})
	case "telegram":
		return telegram.Authenticate(creds.TelegramBotToken, cfg.Publisher.ChatID, telegram.Options{
			APIURL:  cfg.Publisher.APIURL,
			Timeout: res.PublisherTimeout,
		})
	default:
		return nil, errors.New("unknown publisher.driver: " + cfg.Publisher.Driver)
	}
}

func buildLogSender(cfg *config.Config, creds config.Credentials) (logx.Sender, error) {
	s, err := telegram.Authenticate(creds.TelegramBotToken, cfg.Logging.Telegram.ChatID, telegram.Options{
		APIURL: cfg.Publisher.APIURL,
	})
	if err != nil {
		return nil, fmt.Errorf("logging.telegram: %w", err)
	}
	return s, nil
}
