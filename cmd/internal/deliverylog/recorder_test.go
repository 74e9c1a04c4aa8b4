package deliverylog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"beacon/cmd/internal/presence"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (r *captureRecorder) Record(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *captureRecorder) snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumerRecordsNotifications(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}
	c := NewConsumer(testLogger(), rec, time.Second)

	events := make(chan presence.Notification, 4)
	ts := time.Now().UTC()
	events <- presence.Notification{From: "u-a", To: "u-b", ClientMsgID: "m1", Outcome: presence.Delivered, TS: ts}
	events <- presence.Notification{From: "u-a", To: "u-gone", ClientMsgID: "m2", Outcome: presence.RecipientOffline, TS: ts}
	close(events)

	c.Run(context.Background(), events)

	got := rec.snapshot()
	if len(got) != 2 {
		t.Fatalf("recorded=%d want=2", len(got))
	}
	if got[0].To != "u-b" || got[0].Outcome != "delivered" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].To != "u-gone" || got[1].Outcome != "recipient_offline" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
}

func TestConsumerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}
	c := NewConsumer(testLogger(), rec, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan presence.Notification)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, events)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer did not stop on cancel")
	}
}

func TestConsumerKeepsDrainingOnRecorderFailure(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{err: errors.New("db down")}
	c := NewConsumer(testLogger(), rec, time.Second)

	events := make(chan presence.Notification, 2)
	events <- presence.Notification{From: "u-a", To: "u-b"}
	events <- presence.Notification{From: "u-a", To: "u-c"}
	close(events)

	// Must return (having drained both) despite every record failing.
	c.Run(context.Background(), events)
}

func TestLogRecorder(t *testing.T) {
	t.Parallel()

	r := LogRecorder{Log: testLogger()}
	err := r.Record(context.Background(), Entry{From: "u-a", To: "u-b", Outcome: "delivered", RelayedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
}
