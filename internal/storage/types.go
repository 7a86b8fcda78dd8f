package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage. If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord is one dispatch of a scheduled task. Keep it schema-stable.
type RunRecord struct {
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
	Task       string    `json:"task"`
	Trigger    string    `json:"trigger"`
	Outcome    string    `json:"outcome"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	TookMS     int64     `json:"took_ms"`
	Percentage float64   `json:"percentage"`
}
