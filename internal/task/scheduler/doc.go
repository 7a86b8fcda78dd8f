// Package scheduler runs registered tasks from a single poll loop.
//
// Every poll interval the loop wakes, dispatches each entry whose trigger is
// due (in registration order) through the retry engine, and goes back to
// sleep. Dispatch is synchronous: a running task, including its retry
// delays, defers every other entry and the next poll.
//
// Trigger times are computed with robfig/cron schedules:
//   - daily-at "HH:MM": once per calendar day in the scheduler timezone
//   - interval "every:55m": fixed duration since the last fire (or registration)
//   - cron "cron:0 10 * * 1-5" or descriptors such as "@daily"
package scheduler
