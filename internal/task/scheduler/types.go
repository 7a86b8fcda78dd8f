package scheduler

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"termbot/internal/task/engine"
)

const DefaultPollInterval = 30 * time.Second

var (
	ErrRunning       = errors.New("scheduler already running")
	ErrDuplicateName = errors.New("schedule name already registered")
)

// Config controls the poll loop.
type Config struct {
	// PollInterval is the sleep between ticks (default 30s).
	PollInterval time.Duration
	// Timezone is an IANA name used for daily and cron triggers. Empty means Local.
	Timezone string
	// Retry is the budget applied to every dispatch.
	Retry engine.Policy
}

// Entry is a read-only view of a registered schedule.
type Entry struct {
	Name string
	Spec string
	Kind SpecKind
	Next time.Time
	Last time.Time
	Runs int
}

// ResultHandler observes the outcome of each dispatch.
type ResultHandler func(e Entry, res engine.Result)

type entry struct {
	name    string
	spec    string
	kind    SpecKind
	trigger cron.Schedule
	task    engine.Task

	next time.Time
	last time.Time
	runs int
}

func (e *entry) view() Entry {
	return Entry{Name: e.name, Spec: e.spec, Kind: e.kind, Next: e.next, Last: e.last, Runs: e.runs}
}
