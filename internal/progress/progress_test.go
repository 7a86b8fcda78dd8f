package progress

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestNewTermRejectsInvertedRange(t *testing.T) {
	t.Parallel()
	start := date(2024, 9, 30)
	if _, err := NewTerm(start, start); !errors.Is(err, ErrInvalidTerm) {
		t.Fatalf("NewTerm(equal) err = %v", err)
	}
	if _, err := NewTerm(start, start.Add(-time.Hour)); !errors.Is(err, ErrInvalidTerm) {
		t.Fatalf("NewTerm(inverted) err = %v", err)
	}
}

func TestPercentageBounds(t *testing.T) {
	t.Parallel()
	start, end := date(2024, 9, 30), date(2025, 1, 3)
	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{name: "long before", now: date(2020, 1, 1), want: 0},
		{name: "at start", now: start, want: 0},
		{name: "at end", now: end, want: 100},
		{name: "after end", now: date(2026, 1, 1), want: 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(start, end, tt.now); got != tt.want {
				t.Fatalf("Percentage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentageStrictlyInsideAndMonotonic(t *testing.T) {
	t.Parallel()
	start, end := date(2024, 9, 30), date(2025, 1, 3)
	prev := 0.0
	for now := start.Add(time.Hour); now.Before(end); now = now.Add(7 * time.Hour) {
		p := Percentage(start, end, now)
		if p <= 0 || p >= 100 {
			t.Fatalf("Percentage(%v) = %v, want in (0, 100)", now, p)
		}
		if p < prev {
			t.Fatalf("Percentage decreased at %v: %v < %v", now, p, prev)
		}
		prev = p
	}
}

func TestPercentageNearEdgesStaysInside(t *testing.T) {
	t.Parallel()
	start, end := date(2024, 9, 30), date(2025, 1, 3)
	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{name: "one nanosecond in", now: start.Add(time.Nanosecond), want: 0.01},
		{name: "one second in", now: start.Add(time.Second), want: 0.01},
		{name: "one second left", now: end.Add(-time.Second), want: 99.99},
		{name: "one nanosecond left", now: end.Add(-time.Nanosecond), want: 99.99},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Percentage(start, end, tt.now); got != tt.want {
				t.Fatalf("Percentage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTermSnapshotFallTerm(t *testing.T) {
	t.Parallel()
	term, err := NewTerm(date(2024, 9, 30), date(2025, 1, 3))
	if err != nil {
		t.Fatalf("NewTerm: %v", err)
	}
	tests := []struct {
		now       time.Time
		pct       float64
		remaining int
	}{
		// 47 of 95 days elapsed.
		{now: date(2024, 11, 16), pct: 49.47, remaining: 48},
		// 48 of 95 days elapsed.
		{now: date(2024, 11, 17), pct: 50.53, remaining: 47},
	}
	for _, tt := range tests {
		s := term.Snapshot(tt.now, 0)
		if s.Percentage != tt.pct {
			t.Fatalf("%v: Percentage = %v, want %v", tt.now, s.Percentage, tt.pct)
		}
		if s.Remaining != tt.remaining {
			t.Fatalf("%v: Remaining = %d, want %d", tt.now, s.Remaining, tt.remaining)
		}
	}
}

func TestRemainingUnitsFloorsNegative(t *testing.T) {
	t.Parallel()
	end := date(2025, 1, 3)
	if got := RemainingDays(end, end.Add(12*time.Hour)); got != -1 {
		t.Fatalf("RemainingDays half a day after end = %d, want -1", got)
	}
	if got := RemainingDays(end, end.Add(-36*time.Hour)); got != 1 {
		t.Fatalf("RemainingDays 1.5 days before end = %d, want 1", got)
	}
	if got := RemainingUnits(end, end.Add(-90*time.Minute), time.Hour); got != 1 {
		t.Fatalf("RemainingUnits hours = %d, want 1", got)
	}
}

func TestFormatPercent(t *testing.T) {
	t.Parallel()
	for in, want := range map[float64]string{49.47: "49.47", 50.5: "50.5", 100: "100", 0: "0"} {
		if got := FormatPercent(in); got != want {
			t.Fatalf("FormatPercent(%v) = %q, want %q", in, got, want)
		}
	}
}
