package systemd

import (
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "termbot/pkg/logx"
)

func listen(t *testing.T) *net.UnixConn {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Skipf("unixgram not available: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return conn
}

func read(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return strings.TrimSpace(string(buf[:n]))
}

func TestReadyAndStopping(t *testing.T) {
	conn := listen(t)
	t.Setenv("WATCHDOG_USEC", "")

	n := New(true, logx.Nop())
	n.Ready()
	if got := read(t, conn); got != "READY=1" {
		t.Fatalf("state = %q, want READY=1", got)
	}
	n.Stopping()
	if got := read(t, conn); got != "STOPPING=1" {
		t.Fatalf("state = %q, want STOPPING=1", got)
	}
}

func TestWatchdogThrottle(t *testing.T) {
	conn := listen(t)
	t.Setenv("WATCHDOG_USEC", "60000000") // 60s
	t.Setenv("WATCHDOG_PID", "")

	n := New(true, logx.Nop())
	if iv := n.WatchdogInterval(); iv != time.Minute {
		t.Fatalf("interval = %v, want 1m", iv)
	}

	t0 := time.Date(2024, 11, 16, 10, 0, 0, 0, time.UTC)
	n.Watchdog(t0)
	if got := read(t, conn); got != "WATCHDOG=1" {
		t.Fatalf("state = %q", got)
	}
	// Within half the interval: suppressed.
	n.Watchdog(t0.Add(10 * time.Second))
	n.Watchdog(t0.Add(30 * time.Second))
	if got := read(t, conn); got != "WATCHDOG=1" {
		t.Fatalf("state = %q", got)
	}

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 64)
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("unexpected extra watchdog ping")
	}
}

func TestDisabledIsNoop(t *testing.T) {
	conn := listen(t)
	n := New(false, logx.Nop())
	n.Ready()
	n.Watchdog(time.Now())

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 64)
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("disabled notifier sent a datagram")
	}
	var nilN *Notifier
	nilN.Ready()
}
