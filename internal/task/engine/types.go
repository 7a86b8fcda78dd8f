// Package engine executes a task with a bounded, fixed-delay retry budget.
//
// Execution is synchronous on the caller's goroutine: retry delays block the
// caller through the injected clock, so a long retry sleep delays whatever
// the caller would have done next.
package engine

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 5 * time.Minute
)

// Task is a unit of work. Run must be safe to call again after a failure;
// the engine does not check for repeated side effects.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Policy is the retry budget for one execution.
type Policy struct {
	// MaxAttempts counts the first attempt. Values <= 0 mean a single attempt.
	MaxAttempts int
	// Delay is slept between attempts, never after the last one.
	Delay time.Duration
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

type Outcome int

const (
	Succeeded Outcome = iota
	Exhausted
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result reports how one execution ended. Err holds the last failure for
// Exhausted and Canceled outcomes.
type Result struct {
	ID       string
	Task     string
	Outcome  Outcome
	Attempts int
	Sleeps   int
	Started  time.Time
	Took     time.Duration
	Err      error
}

func (r Result) OK() bool { return r.Outcome == Succeeded }

// TaskEvent is the payload of task lifecycle events on the bus.
type TaskEvent struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Started  time.Time     `json:"started"`
	Attempt  int           `json:"attempt"`
	Delay    time.Duration `json:"delay,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Outcome  string        `json:"outcome,omitempty"`
	Error    string        `json:"error,omitempty"`
}
