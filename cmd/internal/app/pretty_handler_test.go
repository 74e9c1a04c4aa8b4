package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandlerOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	log := slog.New(h)

	log.Info("session.open", "user_id", "u-alice", "conn_id", "c1")

	out := buf.String()
	for _, want := range []string{"INFO", "session.open", "user_id=u-alice", "conn_id=c1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("output should end with newline")
	}
}

func TestPrettyHandlerQuotesSpacedValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, nil, false)
	log := slog.New(h)

	log.Info("relay.queue.full", "reason", "queue is full")

	if !strings.Contains(buf.String(), `reason="queue is full"`) {
		t.Fatalf("output %q should quote spaced values", buf.String())
	}
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	t.Parallel()

	h := newPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be filtered at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should pass at warn level")
	}
}
