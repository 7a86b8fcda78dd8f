package app

import (
	"context"
	"errors"
	"sync"

	"termbot/internal/artifact"
	"termbot/internal/clock"
	"termbot/internal/config"
	"termbot/internal/eventbus"
	"termbot/internal/metrics"
	"termbot/internal/poster"
	"termbot/internal/publish"
	"termbot/internal/storage"
	"termbot/internal/task/engine"
	"termbot/internal/task/scheduler"
	logx "termbot/pkg/logx"
	"termbot/pkg/systemd"
)

// Options overrides collaborators. Zero values build the real ones.
type Options struct {
	// EnvFile is loaded before reading credentials. Default: ".env".
	EnvFile string
	Clock   clock.Clock

	Producer artifact.Producer
	Session  publish.Session
	// LogSender replaces the Telegram log sink transport.
	LogSender logx.Sender
}

type App struct {
	cfg *config.Config
	res *config.Resolved

	log  logx.Logger
	logs *logx.Service
	clk  clock.Clock
	bus  eventbus.Bus

	store   storage.Store
	metrics *metrics.Metrics
	scrape  *metrics.ServerConfig
	notify  *systemd.Notifier

	runner *engine.Runner
	sched  *scheduler.Service
	poster *poster.Poster

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewApp loads the config file and environment credentials, then builds the app.
func NewApp(cfgPath string, opt Options) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfgm.SetLogger(logx.NewConsole("INFO").With(logx.String("comp", "config")))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	envFile := opt.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	creds, err := config.LoadCredentials(envFile)
	if err != nil {
		return nil, err
	}
	return New(cfg, creds, opt)
}

// New builds the app from an already loaded config.
func New(cfg *config.Config, creds config.Credentials, opt Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	clk := opt.Clock
	if clk == nil {
		clk = clock.Real()
	}

	sender := opt.LogSender
	if sender == nil && cfg.Logging.Telegram.Enabled {
		if sender, err = buildLogSender(cfg, creds); err != nil {
			return nil, err
		}
	}
	logSvc, log := logx.New(mapLoggingConfig(cfg), sender)
	appLog := log.With(logx.String("comp", "app"))
	appLog.Info("config loaded", config.Summarize(cfg)...)

	a := &App{
		cfg:     cfg,
		res:     res,
		log:     appLog,
		logs:    logSvc,
		clk:     clk,
		bus:     eventbus.New(),
		metrics: metrics.New(),
		notify:  systemd.New(cfg.Systemd.Notify, log),
	}
	a.metrics.Subscribe(a.bus)
	a.scrape = mapMetricsConfig(cfg)

	// Close what was opened so far if a later step fails.
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if sc, enabled := mapStorageConfig(cfg, res); enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
		appLog.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	producer := opt.Producer
	if producer == nil {
		if producer, err = artifact.New(mapProducerConfig(cfg, res)); err != nil {
			return nil, err
		}
	}
	session := opt.Session
	if session == nil {
		if session, err = buildSession(cfg, res, creds); err != nil {
			return nil, err
		}
	}

	a.poster, err = poster.New(poster.Config{
		Term:      res.Term,
		Unit:      res.Unit,
		Template:  cfg.Message.Template,
		ImagePath: cfg.Image.Path,
		Width:     cfg.Image.Width,
		Height:    cfg.Image.Height,
	}, producer, session, clk, log)
	if err != nil {
		return nil, err
	}

	a.runner = engine.New(clk, log.With(logx.String("comp", "engine")), a.bus)
	a.sched, err = scheduler.New(scheduler.Config{
		PollInterval: res.PollInterval,
		Timezone:     cfg.Scheduler.Timezone,
		Retry:        res.Retry,
	}, a.runner, clk, log.With(logx.String("comp", "scheduler")))
	if err != nil {
		return nil, err
	}
	for _, t := range cfg.Scheduler.Tasks {
		if err := a.sched.Add(t.Name, t.Schedule, a.poster.Task(t.Name)); err != nil {
			return nil, err
		}
	}
	a.sched.OnResult(a.recordResult)
	a.sched.OnTick(a.onTick)

	ok = true
	return a, nil
}

// Scheduler exposes the scheduler for inspection.
func (a *App) Scheduler() *scheduler.Service { return a.sched }

// Store returns the run history store, or nil if disabled.
func (a *App) Store() storage.Store { return a.store }

func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Run serves until ctx is done. Task failures never end it.
func (a *App) Run(ctx context.Context) error {
	if a.scrape != nil {
		cfg := *a.scrape
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.metrics.Serve(ctx, cfg, a.log.With(logx.String("comp", "metrics"))); err != nil {
				a.log.Error("metrics server failed", logx.Err(err))
			}
		}()
	}

	a.logLastRun(ctx)
	a.notify.Ready()
	err := a.sched.Run(ctx)
	a.notify.Stopping()
	a.wg.Wait()
	return err
}

// RunOnce posts once through the retry wrapper, regardless of schedules.
func (a *App) RunOnce(ctx context.Context) engine.Result {
	const name = "once"
	res := a.runner.Run(ctx, a.poster.Task(name), a.res.Retry)
	a.recordResult(scheduler.Entry{Name: name, Spec: name}, res)
	return res
}

func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.store != nil {
			if cerr := a.store.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		if a.logs != nil {
			err = errors.Join(err, a.logs.Close())
		}
	})
	return err
}
