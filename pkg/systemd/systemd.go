// Package systemd reports service state to systemd through sd_notify.
// Outside a unit (NOTIFY_SOCKET unset) every call is a cheap no-op.
package systemd

import (
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "termbot/pkg/logx"
)

// Notifier sends READY, WATCHDOG and STOPPING states.
//
// The watchdog is pinged from the scheduler tick, so WatchdogSec in the
// unit must exceed the longest run (attempts times retry delay) plus one
// poll interval.
type Notifier struct {
	enabled bool
	log     logx.Logger

	mu       sync.Mutex
	interval time.Duration
	lastPing time.Time
}

func New(enabled bool, log logx.Logger) *Notifier {
	n := &Notifier{enabled: enabled, log: log.With(logx.String("comp", "systemd"))}
	if !enabled {
		return n
	}
	iv, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.log.Warn("watchdog env invalid", logx.Err(err))
	}
	n.interval = iv
	return n
}

// WatchdogInterval is WatchdogSec from the unit, or 0 if disabled.
func (n *Notifier) WatchdogInterval() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.interval
}

func (n *Notifier) Ready() { n.notify(daemon.SdNotifyReady) }

func (n *Notifier) Stopping() { n.notify(daemon.SdNotifyStopping) }

// Watchdog pings at most twice per watchdog interval.
func (n *Notifier) Watchdog(now time.Time) {
	n.mu.Lock()
	iv := n.interval
	due := iv > 0 && (n.lastPing.IsZero() || now.Sub(n.lastPing) >= iv/2)
	if due {
		n.lastPing = now
	}
	n.mu.Unlock()
	if due {
		n.notify(daemon.SdNotifyWatchdog)
	}
}

func (n *Notifier) notify(state string) {
	if n == nil || !n.enabled {
		return
	}
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	n.log.Debug("sd_notify", logx.String("state", state), logx.Bool("sent", sent))
}
