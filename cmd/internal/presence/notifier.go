package presence

import (
	"log/slog"
	"time"
)

const defaultNotifyBuffer = 1024

// Notification is the fire-and-forget side event emitted after every relay
// attempt, intended for an optional persistence collaborator.
type Notification struct {
	From        string
	To          string
	ClientMsgID string
	Outcome     Outcome
	TS          time.Time
}

// Notifier is a bounded, non-blocking fanout point for relay notifications.
//
// Publish never blocks: when the buffer is full the event is dropped and
// counted, so a slow or absent consumer can never stall message relay.
type Notifier struct {
	log *slog.Logger
	ch  chan Notification
}

// NewNotifier constructs a Notifier with a bounded buffer.
func NewNotifier(log *slog.Logger, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = defaultNotifyBuffer
	}
	return &Notifier{
		log: log,
		ch:  make(chan Notification, buffer),
	}
}

// Publish enqueues a notification, dropping it when the buffer is full.
func (n *Notifier) Publish(ev Notification) {
	if n == nil {
		return
	}

	select {
	case n.ch <- ev:
	default:
		notifyDrops.Inc()
		n.log.Debug("relay.notify.drop", "from", ev.From, "to", ev.To)
	}
}

// Events returns the consumer side of the notification stream.
func (n *Notifier) Events() <-chan Notification {
	if n == nil {
		return nil
	}
	return n.ch
}
