package presence

import (
	"testing"
	"time"
)

func TestNotifierPublishReceive(t *testing.T) {
	t.Parallel()

	n := NewNotifier(testLogger(), 4)

	ev := Notification{From: "u-a", To: "u-b", ClientMsgID: "m1", Outcome: Delivered, TS: time.Now().UTC()}
	n.Publish(ev)

	got := <-n.Events()
	if got != ev {
		t.Fatalf("got=%+v want=%+v", got, ev)
	}
}

func TestNotifierDropsWhenFull(t *testing.T) {
	t.Parallel()

	n := NewNotifier(testLogger(), 2)

	// No consumer: the third publish must drop instead of blocking.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			n.Publish(Notification{From: "u-a", To: "u-b"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a full buffer")
	}

	if got := len(n.Events()); got != 2 {
		t.Fatalf("buffered=%d want=2", got)
	}
}

func TestNotifierNilSafe(t *testing.T) {
	t.Parallel()

	var n *Notifier
	n.Publish(Notification{From: "u-a"})
	if n.Events() != nil {
		t.Fatalf("nil notifier Events should be nil")
	}
}
