// Package progress computes how far a term has advanced.
package progress

import (
	"errors"
	"math"
	"strconv"
	"time"
)

const Day = 24 * time.Hour

var ErrInvalidTerm = errors.New("term start must be before end")

// Term is the fixed period whose elapsed fraction is published.
type Term struct {
	Start time.Time
	End   time.Time
}

func NewTerm(start, end time.Time) (Term, error) {
	if !start.Before(end) {
		return Term{}, ErrInvalidTerm
	}
	return Term{Start: start, End: end}, nil
}

// Snapshot is the progress of a term at a given instant.
type Snapshot struct {
	At         time.Time
	Percentage float64
	// Remaining counts whole units until End and is negative once End passed.
	Remaining int
}

// Snapshot evaluates the term at now, counting Remaining in unit (Day if <= 0).
func (t Term) Snapshot(now time.Time, unit time.Duration) Snapshot {
	return Snapshot{
		At:         now,
		Percentage: Percentage(t.Start, t.End, now),
		Remaining:  RemainingUnits(t.End, now, unit),
	}
}

const (
	minInterior = 0.01
	maxInterior = 99.99
)

// Percentage returns the elapsed share of [start, end] at now, in [0, 100],
// rounded to two decimals. Only start and earlier yield 0 and only end and
// later yield 100; instants strictly inside stay in [0.01, 99.99].
func Percentage(start, end, now time.Time) float64 {
	if !now.After(start) {
		return 0
	}
	if !now.Before(end) {
		return 100
	}
	ratio := float64(now.Sub(start)) / float64(end.Sub(start))
	p := math.Round(ratio*100*100) / 100
	return math.Min(math.Max(p, minInterior), maxInterior)
}

// RemainingUnits returns the floor of (end - now) / unit.
func RemainingUnits(end, now time.Time, unit time.Duration) int {
	if unit <= 0 {
		unit = Day
	}
	d := end.Sub(now)
	n := d / unit
	if d%unit < 0 {
		n--
	}
	return int(n)
}

func RemainingDays(end, now time.Time) int { return RemainingUnits(end, now, Day) }

// FormatPercent renders p with the shortest exact decimal form ("49.47", "50.5", "100").
func FormatPercent(p float64) string { return strconv.FormatFloat(p, 'f', -1, 64) }
