package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termbot/internal/clock"
	"termbot/internal/eventbus"
	"termbot/internal/task/engine"
	logx "termbot/pkg/logx"
)

func TestEngineEventsUpdateCounters(t *testing.T) {
	m := New()
	bus := eventbus.New()
	unsub := m.Subscribe(bus)
	defer unsub()

	clk := clock.NewFake(time.Date(2024, 11, 16, 10, 40, 0, 0, time.UTC))
	r := engine.New(clk, logx.Nop(), bus)

	calls := 0
	flaky := engine.Task{Name: "morning", Run: func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return assert.AnError
		}
		return nil
	}}
	res := r.Run(context.Background(), flaky, engine.Policy{MaxAttempts: 3, Delay: 5 * time.Minute})
	require.True(t, res.OK())

	broken := engine.Task{Name: "evening", Run: func(ctx context.Context) error { return assert.AnError }}
	res = r.Run(context.Background(), broken, engine.Policy{MaxAttempts: 2, Delay: time.Minute})
	require.Equal(t, engine.Exhausted, res.Outcome)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskRuns.WithLabelValues("morning", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskRuns.WithLabelValues("evening", "exhausted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TaskAttempts.WithLabelValues("morning")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TaskAttempts.WithLabelValues("evening")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TaskRetries.WithLabelValues("morning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskRetries.WithLabelValues("evening")))

	wantTS := float64(time.Date(2024, 11, 16, 10, 50, 0, 0, time.UTC).Unix())
	assert.Equal(t, 1, testutil.CollectAndCount(m.LastSuccess), "only successful tasks get a timestamp")
	assert.Equal(t, wantTS, testutil.ToFloat64(m.LastSuccess.WithLabelValues("morning")))
}

func TestIgnoresForeignPayloads(t *testing.T) {
	m := New()
	m.observe(eventbus.Event{Type: eventbus.TaskFinished, Data: "not a task event"})
	assert.Equal(t, 0, testutil.CollectAndCount(m.TaskRuns))
}

func TestProgressAndTicks(t *testing.T) {
	m := New()
	m.RecordProgress(49.47, 48)
	m.RecordTick()
	m.RecordTick()

	assert.Equal(t, 49.47, testutil.ToFloat64(m.Progress))
	assert.Equal(t, 48.0, testutil.ToFloat64(m.Remaining))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ticks))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordProgress(50.53, 47)

	srv := httptest.NewServer(m.Handler("metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "termbot_progress_percent 50.53"), "body missing gauge")

	hz, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = hz.Body.Close()
	assert.Equal(t, http.StatusOK, hz.StatusCode)
}

func TestServeRefusesPublicBind(t *testing.T) {
	m := New()
	err := m.Serve(context.Background(), ServerConfig{Addr: ":9108"}, logx.Nop())
	assert.ErrorIs(t, err, ErrInsecureBind)
}

func TestServeStopsOnCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, ServerConfig{Addr: "127.0.0.1:0"}, logx.Nop()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:9108": true,
		"localhost:9108": true,
		"[::1]:9108":     true,
		":9108":          false,
		"0.0.0.0:9108":   false,
		"10.0.0.5:9108":  false,
		"bogus":          false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, isLoopbackAddr(addr), addr)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":          DefaultPath,
		"   ":       DefaultPath,
		"/metrics":  "/metrics",
		"scrape":    "/scrape",
		" /custom ": "/custom",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
