// Package deliverylog is the optional persistence collaborator for relay
// notifications. It sits strictly outside the relay path: the core publishes
// fire-and-forget events and this package records what it manages to consume.
package deliverylog

import (
	"context"
	"log/slog"
	"time"

	"beacon/cmd/internal/presence"
)

// Entry is one recorded relay notification.
type Entry struct {
	From        string
	To          string
	ClientMsgID string
	Outcome     string
	RelayedAt   time.Time
}

// Recorder persists delivery-log entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// LogRecorder writes entries to the structured log. Used when no database is
// configured.
type LogRecorder struct {
	Log *slog.Logger
}

// Record logs the entry.
func (r LogRecorder) Record(_ context.Context, e Entry) error {
	r.Log.Info("deliverylog.entry",
		"from", e.From,
		"to", e.To,
		"client_msg_id", e.ClientMsgID,
		"outcome", e.Outcome,
		"relayed_at", e.RelayedAt,
	)
	return nil
}

// Consumer drains relay notifications into a Recorder.
type Consumer struct {
	log      *slog.Logger
	recorder Recorder
	timeout  time.Duration
}

// NewConsumer constructs a Consumer with a per-record timeout.
func NewConsumer(log *slog.Logger, recorder Recorder, timeout time.Duration) *Consumer {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Consumer{log: log, recorder: recorder, timeout: timeout}
}

// Run consumes events until the context is cancelled. Recorder failures are
// logged and dropped; the stream must keep draining so the notifier buffer
// does not back up into drops.
func (c *Consumer) Run(ctx context.Context, events <-chan presence.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.record(ctx, ev)
		}
	}
}

func (c *Consumer) record(parent context.Context, ev presence.Notification) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	err := c.recorder.Record(ctx, Entry{
		From:        ev.From,
		To:          ev.To,
		ClientMsgID: ev.ClientMsgID,
		Outcome:     ev.Outcome.String(),
		RelayedAt:   ev.TS,
	})
	if err != nil {
		c.log.Warn("deliverylog.record.fail", "from", ev.From, "to", ev.To, "err", err)
	}
}
