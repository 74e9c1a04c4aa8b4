package presence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	onlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beacon",
		Subsystem: "presence",
		Name:      "online_users",
		Help:      "Number of users with a registered realtime connection.",
	})

	relayOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beacon",
		Subsystem: "relay",
		Name:      "messages_total",
		Help:      "Relay attempts partitioned by outcome.",
	}, []string{"outcome"})

	relayQueueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beacon",
		Subsystem: "relay",
		Name:      "queue_drops_total",
		Help:      "Messages dropped because the recipient send queue was full or closing.",
	})

	notifyDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beacon",
		Subsystem: "relay",
		Name:      "notification_drops_total",
		Help:      "Relay notifications dropped because the notifier buffer was full.",
	})
)
