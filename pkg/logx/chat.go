package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

func (s *Service) chatWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.chatQueue:
			if err := s.sender.SendText(ctx, msg); err != nil && ctx.Err() == nil {
				s.reportSendFailure(err)
			}
		}
	}
}

// reportSendFailure cannot log through the service itself: the line would be
// routed back to the failing chat.
func (s *Service) reportSendFailure(err error) {
	s.mu.Lock()
	s.sendFailures++
	n := s.sendFailures
	out := s.errOut
	allow := s.sendErrLimit == nil || s.sendErrLimit.Allow()
	if allow {
		s.sendFailures = 0
	}
	s.mu.Unlock()

	if !allow {
		return
	}
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "logx: chat sink send failed (%d since last report): %v\n", n, err)
}

func (s *Service) enqueueChat(msg string) {
	// Never block the poll loop on a slow chat.
	select {
	case s.chatQueue <- msg:
	default:
	}
}

// chatWriter is a zerolog.LevelWriter that forwards selected lines to the Sender.
type chatWriter struct{ svc *Service }

func (w *chatWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *chatWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc

	s.mu.Lock()
	lim := s.limiter
	minLevel := s.minLevel
	s.mu.Unlock()

	if level < minLevel || lim == nil || !lim.Allow() {
		return len(p), nil
	}
	if msg := formatChatLine(p); msg != "" {
		s.enqueueChat(msg)
	}
	return len(p), nil
}

// formatChatLine renders a zerolog JSON line as "[LEVEL] msg" plus one "- k=v" row per field.
func formatChatLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(p))), &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), 3500)
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[")
		b.WriteString(strings.ToUpper(lvl))
		b.WriteString("] ")
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n- ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(truncate(fmt.Sprint(m[k]), 600))
	}
	return truncate(b.String(), 3500)
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
