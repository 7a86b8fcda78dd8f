package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"termbot/internal/clock"
	"termbot/internal/task/engine"
	logx "termbot/pkg/logx"
)

type Service struct {
	cfg    Config
	loc    *time.Location
	clock  clock.Clock
	runner *engine.Runner
	log    logx.Logger

	// mu guards registration against a concurrent Run start. Entries are only
	// touched by the loop goroutine once running.
	mu       sync.Mutex
	entries  []*entry
	running  bool
	onResult []ResultHandler
	onTick   []func(now time.Time)
}

func New(cfg Config, runner *engine.Runner, clk clock.Clock, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if runner == nil {
		runner = engine.New(clk, log, nil)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("scheduler timezone %q: %w", tz, err)
		}
		loc = l
	}
	return &Service{cfg: cfg, loc: loc, clock: clk, runner: runner, log: log}, nil
}

// Location returns the timezone used for daily and cron triggers.
func (s *Service) Location() *time.Location { return s.loc }

// Add registers a task under a unique name. The first fire is computed from
// the current clock time. Registration is closed once Run has started.
func (s *Service) Add(name, spec string, task engine.Task) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("schedule name required")
	}
	p, err := ParseSchedule(spec)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", name, err)
	}
	trigger, err := p.Schedule()
	if err != nil {
		return fmt.Errorf("schedule %q: %w", name, err)
	}
	if task.Name == "" {
		task.Name = name
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	for _, e := range s.entries {
		if e.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
	}
	now := s.clock.Now().In(s.loc)
	e := &entry{name: name, spec: strings.TrimSpace(spec), kind: p.Kind, trigger: trigger, task: task, next: trigger.Next(now)}
	s.entries = append(s.entries, e)
	s.log.Debug("schedule registered", logx.String("name", name), logx.String("kind", p.Kind.String()), logx.Time("next", e.next))
	return nil
}

// OnResult registers a handler called after every dispatch, on the loop goroutine.
func (s *Service) OnResult(h ResultHandler) {
	if h == nil {
		return
	}
	s.mu.Lock()
	s.onResult = append(s.onResult, h)
	s.mu.Unlock()
}

// OnTick registers a hook called after every tick (e.g. a watchdog ping).
func (s *Service) OnTick(fn func(now time.Time)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onTick = append(s.onTick, fn)
	s.mu.Unlock()
}

// Entries returns a snapshot of the registered schedules in registration order.
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.view())
	}
	return out
}

// Run polls until ctx is done. It never returns because of a task failure.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	n := len(s.entries)
	s.mu.Unlock()

	s.log.Info("scheduler started",
		logx.Int("schedules", n),
		logx.String("tz", s.loc.String()),
		logx.Duration("poll", s.cfg.PollInterval),
		logx.Int("max_attempts", s.cfg.Retry.MaxAttempts),
		logx.Duration("retry_delay", s.cfg.Retry.Delay),
	)
	for _, e := range s.Entries() {
		s.log.Info("schedule", logx.String("name", e.Name), logx.String("spec", e.Spec), logx.Time("next", e.Next))
	}

	for {
		if ctx.Err() != nil {
			break
		}
		s.Tick(ctx)
		if err := s.clock.Sleep(ctx, s.cfg.PollInterval); err != nil {
			break
		}
	}
	s.log.Info("scheduler stopped")
	return nil
}

// Tick dispatches every entry that is due at the current clock time, in
// registration order, and returns how many were dispatched.
func (s *Service) Tick(ctx context.Context) int {
	s.mu.Lock()
	entries := append([]*entry(nil), s.entries...)
	onResult := append([]ResultHandler(nil), s.onResult...)
	onTick := append([]func(time.Time){}, s.onTick...)
	s.mu.Unlock()

	now := s.clock.Now().In(s.loc)
	fired := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if now.Before(e.next) {
			continue
		}
		if e.kind == SpecDaily && sameDay(e.last.In(s.loc), now) {
			e.next = e.trigger.Next(now)
			continue
		}
		res := s.dispatch(ctx, e)
		fired++
		view := e.view()
		for _, h := range onResult {
			h(view, res)
		}
	}
	for _, fn := range onTick {
		fn(s.clock.Now())
	}
	return fired
}

func (s *Service) dispatch(ctx context.Context, e *entry) engine.Result {
	at := s.clock.Now().In(s.loc)
	e.last = at
	e.next = e.trigger.Next(at)
	e.runs++

	s.log.Info("dispatch", logx.String("task", e.name), logx.String("spec", e.spec), logx.Time("next", e.next))
	return s.runner.Run(ctx, e.task, s.cfg.Retry)
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
