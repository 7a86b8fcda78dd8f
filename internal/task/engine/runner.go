package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"

	"termbot/internal/clock"
	"termbot/internal/eventbus"
	logx "termbot/pkg/logx"
)

// Runner executes tasks under a retry Policy.
type Runner struct {
	clock clock.Clock
	log   logx.Logger
	bus   eventbus.Bus
}

// New returns a Runner. bus may be nil.
func New(clk clock.Clock, log logx.Logger, bus eventbus.Bus) *Runner {
	if clk == nil {
		clk = clock.Real()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{clock: clk, log: log, bus: bus}
}

// Run attempts t up to p.MaxAttempts times, sleeping exactly p.Delay between
// attempts. It never returns an error: failures are reported in Result.
func (r *Runner) Run(ctx context.Context, t Task, p Policy) Result {
	res := Result{ID: uuid.NewString(), Task: t.Name, Started: r.clock.Now()}
	maxAttempts := p.attempts()

	r.publish(eventbus.TaskStarted, TaskEvent{ID: res.ID, Name: t.Name, Started: res.Started})
	r.log.Debug("task.started", logx.String("task", t.Name), logx.String("run_id", res.ID))

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		err = r.attempt(ctx, t)
		if err == nil {
			break
		}

		var nr noRetryError
		if errors.As(err, &nr) {
			r.log.Warn("task failed permanently", logx.String("task", t.Name), logx.Int("attempt", attempt), logx.Err(nr.err))
			err = nr.err
			break
		}
		if attempt >= maxAttempts {
			r.log.Warn("task failed", logx.String("task", t.Name), logx.Int("attempt", attempt), logx.Int("max_attempts", maxAttempts), logx.Err(err))
			break
		}

		r.log.Warn("task failed; retrying", logx.String("task", t.Name), logx.Int("attempt", attempt), logx.Duration("delay", p.Delay), logx.Err(err))
		r.publish(eventbus.TaskRetry, TaskEvent{ID: res.ID, Name: t.Name, Started: res.Started, Attempt: attempt, Delay: p.Delay, Error: err.Error()})

		res.Sleeps++
		if serr := r.clock.Sleep(ctx, p.Delay); serr != nil {
			res.Outcome = Canceled
			res.Err = err
			res.Took = r.clock.Now().Sub(res.Started)
			r.log.Warn("task canceled during retry delay", logx.String("task", t.Name), logx.Int("attempts", res.Attempts))
			r.publish(eventbus.TaskCanceled, r.finalEvent(res))
			return res
		}
	}

	res.Took = r.clock.Now().Sub(res.Started)
	if err != nil {
		res.Outcome = Exhausted
		res.Err = err
		r.log.Error("task exhausted", logx.String("task", t.Name), logx.Int("attempts", res.Attempts), logx.Duration("took", res.Took), logx.Err(err))
		r.publish(eventbus.TaskExhausted, r.finalEvent(res))
		return res
	}

	res.Outcome = Succeeded
	r.log.Info("task completed", logx.String("task", t.Name), logx.Int("attempts", res.Attempts), logx.Duration("took", res.Took))
	r.publish(eventbus.TaskFinished, r.finalEvent(res))
	return res
}

// attempt runs t once, converting a panic into an error so one bad run
// cannot take the poll loop down.
func (r *Runner) attempt(ctx context.Context, t Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			r.log.Error("task.panic", logx.String("task", t.Name), logx.Any("panic", p), logx.String("stack", string(debug.Stack())))
		}
	}()
	if t.Run == nil {
		return NoRetry(errors.New("task has no run function"))
	}
	return t.Run(ctx)
}

func (r *Runner) finalEvent(res Result) TaskEvent {
	ev := TaskEvent{
		ID:       res.ID,
		Name:     res.Task,
		Started:  res.Started,
		Attempt:  res.Attempts,
		Duration: res.Took,
		Outcome:  res.Outcome.String(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}

func (r *Runner) publish(typ string, ev TaskEvent) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{Type: typ, Time: r.clock.Now(), Data: ev})
}
