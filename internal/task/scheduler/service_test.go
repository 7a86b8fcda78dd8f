package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"termbot/internal/clock"
	"termbot/internal/task/engine"
	logx "termbot/pkg/logx"
)

var day1 = time.Date(2024, 11, 16, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, clk *clock.Fake, retry engine.Policy) *Service {
	t.Helper()
	s, err := New(Config{PollInterval: 30 * time.Second, Timezone: "UTC", Retry: retry}, engine.New(clk, logx.Nop(), nil), clk, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// pollUntil drives the loop by hand: tick, then advance by the poll interval.
func pollUntil(ctx context.Context, s *Service, clk *clock.Fake, until time.Time, every time.Duration) {
	for clk.Now().Before(until) {
		s.Tick(ctx)
		clk.Advance(every)
	}
}

func TestDailyFiresOncePerDayOver48Hours(t *testing.T) {
	t.Parallel()
	for _, poll := range []time.Duration{30 * time.Second, 10 * time.Second} {
		poll := poll
		t.Run(poll.String(), func(t *testing.T) {
			t.Parallel()
			clk := clock.NewFake(day1)
			s := newTestService(t, clk, engine.Policy{MaxAttempts: 1})

			var fires []time.Time
			err := s.Add("morning", "10:00", engine.Task{Run: func(context.Context) error {
				fires = append(fires, clk.Now())
				return nil
			}})
			if err != nil {
				t.Fatalf("Add: %v", err)
			}

			pollUntil(context.Background(), s, clk, day1.Add(48*time.Hour), poll)

			if len(fires) != 2 {
				t.Fatalf("fired %d times, want 2: %v", len(fires), fires)
			}
			if sameDay(fires[0], fires[1]) {
				t.Fatalf("fired twice on the same day: %v", fires)
			}
			for _, f := range fires {
				if f.Hour() != 10 || f.Minute() != 0 {
					t.Fatalf("fired at %v, want 10:00", f)
				}
			}
		})
	}
}

func TestSameInstantTasksRunInOrderWithoutOverlap(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(day1)
	s := newTestService(t, clk, engine.Policy{MaxAttempts: 1})

	type span struct {
		name       string
		start, end time.Time
	}
	var spans []span
	work := func(name string) engine.Task {
		return engine.Task{Run: func(context.Context) error {
			sp := span{name: name, start: clk.Now()}
			clk.Advance(5 * time.Minute)
			sp.end = clk.Now()
			spans = append(spans, sp)
			return nil
		}}
	}
	for _, name := range []string{"first", "second"} {
		if err := s.Add(name, "10:00", work(name)); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}

	pollUntil(context.Background(), s, clk, day1.Add(2*time.Hour), 30*time.Second)

	if len(spans) != 2 {
		t.Fatalf("ran %d tasks, want 2", len(spans))
	}
	if spans[0].name != "first" || spans[1].name != "second" {
		t.Fatalf("order = %s, %s", spans[0].name, spans[1].name)
	}
	if spans[1].start.Before(spans[0].end) {
		t.Fatalf("tasks overlapped: second started %v before first ended %v", spans[1].start, spans[0].end)
	}
}

func TestIntervalFiresSinceRegistration(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(day1)
	s := newTestService(t, clk, engine.Policy{MaxAttempts: 1})

	var fires []time.Time
	if err := s.Add("hourly", "every:1h", engine.Task{Run: func(context.Context) error {
		fires = append(fires, clk.Now())
		return nil
	}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	pollUntil(context.Background(), s, clk, day1.Add(3*time.Hour+5*time.Minute), 30*time.Second)

	if len(fires) != 3 {
		t.Fatalf("fired %d times, want 3: %v", len(fires), fires)
	}
	for i, f := range fires {
		if want := day1.Add(time.Duration(i+1) * time.Hour); !f.Equal(want) {
			t.Fatalf("fire %d at %v, want %v", i, f, want)
		}
	}
}

func TestLongTaskDelaysLaterTrigger(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(day1)
	s := newTestService(t, clk, engine.Policy{MaxAttempts: 1})

	var lateAt []time.Time
	_ = s.Add("slow", "10:00", engine.Task{Run: func(context.Context) error {
		clk.Advance(2 * time.Hour)
		return nil
	}})
	_ = s.Add("late", "11:00", engine.Task{Run: func(context.Context) error {
		lateAt = append(lateAt, clk.Now())
		return nil
	}})

	pollUntil(context.Background(), s, clk, day1.Add(6*time.Hour), 30*time.Second)

	// The 11:00 occurrence is coalesced into the first poll after the slow task.
	if len(lateAt) != 1 {
		t.Fatalf("late task fired %d times, want 1", len(lateAt))
	}
	if !lateAt[0].Equal(time.Date(2024, 11, 16, 12, 0, 30, 0, time.UTC)) {
		t.Fatalf("late task fired at %v, want 12:00:30", lateAt[0])
	}
}

func TestRunSurvivesExhaustedTasks(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(day1)
	s := newTestService(t, clk, engine.Policy{MaxAttempts: 3, Delay: 5 * time.Minute})

	calls := 0
	if err := s.Add("morning", "10:00", engine.Task{Run: func(context.Context) error {
		calls++
		return errors.New("upload failed")
	}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var outcomes []engine.Outcome
	s.OnResult(func(_ Entry, res engine.Result) { outcomes = append(outcomes, res.Outcome) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var lateAdd error
	s.OnTick(func(now time.Time) {
		if lateAdd == nil {
			lateAdd = s.Add("late", "every:1h", engine.Task{Run: func(context.Context) error { return nil }})
		}
		if !now.Before(day1.Add(48 * time.Hour)) {
			cancel()
		}
	})

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(lateAdd, ErrRunning) {
		t.Fatalf("Add after Run err = %v, want ErrRunning", lateAdd)
	}
	if calls != 6 {
		t.Fatalf("calls = %d, want 3 attempts on each of 2 days", calls)
	}
	if len(outcomes) != 2 || outcomes[0] != engine.Exhausted || outcomes[1] != engine.Exhausted {
		t.Fatalf("outcomes = %v", outcomes)
	}

	retrySleeps := 0
	for _, d := range clk.Sleeps() {
		if d == 5*time.Minute {
			retrySleeps++
		}
	}
	if retrySleeps != 4 {
		t.Fatalf("retry sleeps = %d, want 4", retrySleeps)
	}
}

func TestAddValidation(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(day1)
	s := newTestService(t, clk, engine.Policy{})
	noop := engine.Task{Run: func(context.Context) error { return nil }}

	if err := s.Add("", "10:00", noop); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := s.Add("bad", "25:00", noop); err == nil {
		t.Fatal("expected error for invalid spec")
	}
	if err := s.Add("morning", "10:40", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("morning", "17:30", noop); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate Add err = %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 || !entries[0].Next.Equal(time.Date(2024, 11, 16, 10, 40, 0, 0, time.UTC)) {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Timezone: "Mars/Olympus"}, nil, nil, logx.Nop()); err == nil {
		t.Fatal("expected timezone error")
	}
}
