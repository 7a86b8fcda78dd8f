package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "termbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestFileStoreRecentRuns(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state", "runs.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	base := time.Date(2024, 11, 16, 10, 40, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := RunRecord{ID: string(rune('a' + i)), At: base.Add(time.Duration(i) * 24 * time.Hour), Task: "morning", Outcome: "succeeded", Attempts: 1}
		if err := st.AppendRun(ctx, r); err != nil {
			t.Fatalf("AppendRun: %v", err)
		}
	}

	// Simulate a torn write from a crash.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"id":"torn","at":`)
	_ = f.Close()

	got, err := st.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "c" || got[2].ID != "e" {
		t.Fatalf("ids = %s..%s, want c..e", got[0].ID, got[2].ID)
	}
	if !got[2].At.Equal(base.Add(4 * 24 * time.Hour)) {
		t.Fatalf("At = %v", got[2].At)
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected path error")
	}
}
