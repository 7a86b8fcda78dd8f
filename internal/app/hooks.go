package app

import (
	"context"
	"time"

	"termbot/internal/storage"
	"termbot/internal/task/engine"
	"termbot/internal/task/scheduler"
	logx "termbot/pkg/logx"
)

// recordResult runs on the scheduler goroutine after every dispatch.
func (a *App) recordResult(e scheduler.Entry, res engine.Result) {
	snap := a.poster.Last()
	a.metrics.RecordProgress(snap.Percentage, snap.Remaining)

	if a.store == nil {
		return
	}
	rec := storage.RunRecord{
		ID:         res.ID,
		At:         res.Started,
		Task:       e.Name,
		Trigger:    e.Spec,
		Outcome:    res.Outcome.String(),
		Attempts:   res.Attempts,
		TookMS:     res.Took.Milliseconds(),
		Percentage: snap.Percentage,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	// History must not block shutdown or fail the tick.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.AppendRun(ctx, rec); err != nil {
		a.log.Warn("history append failed", logx.String("task", e.Name), logx.Err(err))
	}
}

func (a *App) onTick(now time.Time) {
	a.metrics.RecordTick()
	a.notify.Watchdog(now)
}

func (a *App) logLastRun(ctx context.Context) {
	if a.store == nil {
		return
	}
	runs, err := a.store.RecentRuns(ctx, 1)
	if err != nil {
		a.log.Warn("history read failed", logx.Err(err))
		return
	}
	if len(runs) == 0 {
		return
	}
	r := runs[0]
	a.log.Info("last run",
		logx.String("task", r.Task),
		logx.Time("at", r.At),
		logx.String("outcome", r.Outcome),
		logx.Int("attempts", r.Attempts),
	)
}
