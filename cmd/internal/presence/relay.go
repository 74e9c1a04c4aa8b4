package presence

import (
	"encoding/json"
	"log/slog"
	"time"

	v1 "beacon/shared/contracts/realtime/v1"
)

// Outcome is the result of a relay attempt.
type Outcome uint8

const (
	// Delivered means the payload was enqueued on the recipient's outbound channel.
	Delivered Outcome = iota
	// RecipientOffline means the recipient has no reachable connection.
	// This covers the directory miss, a recipient that is shutting down, and a
	// full send queue: all degrade to the same soft signal, never an error.
	RecipientOffline
)

// String returns the wire representation of the outcome.
func (o Outcome) String() string {
	if o == Delivered {
		return v1.OutcomeDelivered
	}
	return v1.OutcomeRecipientOffline
}

// Relay routes a direct message to the recipient's active connection, if any.
//
// Relay is stateless: all presence state lives in the Directory. Send never
// blocks the caller and never fails fatally; every miss is reported as
// RecipientOffline and the calling layer decides how to surface it.
type Relay struct {
	log      *slog.Logger
	dir      *Directory
	notifier *Notifier
}

// NewRelay constructs a Relay. The notifier may be nil.
func NewRelay(log *slog.Logger, dir *Directory, notifier *Notifier) *Relay {
	return &Relay{log: log, dir: dir, notifier: notifier}
}

// Send looks up the recipient and forwards the payload, tagged with the sender,
// to that connection's outbound channel.
//
// Ordering: for a fixed recipient, payloads are enqueued in Send invocation
// order; the recipient's outbound channel is a single ordered queue drained by
// one writer goroutine.
func (r *Relay) Send(from, to, clientMsgID string, body json.RawMessage, now time.Time) Outcome {
	outcome := r.forward(from, to, clientMsgID, body, now)

	relayOutcomes.WithLabelValues(outcome.String()).Inc()
	r.notifier.Publish(Notification{
		From:        from,
		To:          to,
		ClientMsgID: clientMsgID,
		Outcome:     outcome,
		TS:          now,
	})

	return outcome
}

func (r *Relay) forward(from, to, clientMsgID string, body json.RawMessage, now time.Time) Outcome {
	recipient := r.dir.client(to)
	if recipient == nil {
		return RecipientOffline
	}

	payload, err := json.Marshal(v1.MessageReceivePayload{
		From:        from,
		ClientMsgID: clientMsgID,
		Body:        body,
		ServerTS:    now,
	})
	if err != nil {
		// Body is already-validated raw JSON; this should not happen.
		r.log.Error("relay.payload.marshal.fail", "from", from, "to", to, "err", err)
		return RecipientOffline
	}
	env := newEnvelope(v1.TypeMessageReceive, payload, now)

	// The recipient may start closing between lookup and enqueue. Checking Done
	// first keeps the common case cheap; the enqueue itself stays non-blocking.
	select {
	case <-recipient.Done():
		return RecipientOffline
	default:
	}

	select {
	case recipient.Send <- env:
		return Delivered
	default:
		relayQueueDrops.Inc()
		r.log.Info("relay.queue.full", "to", to, "conn_id", recipient.ConnID)
		return RecipientOffline
	}
}
