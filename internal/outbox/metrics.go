package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Publication outcomes.
const (
	outcomePublished    = "published"
	outcomeDeadLettered = "dead_lettered"
)

// Dead-letter outcomes.
const (
	outcomeRequeued    = "requeued"
	outcomeRescheduled = "rescheduled"
	outcomeQuarantined = "quarantined"
)

var (
	eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lazywalker",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events handled by the dispatcher, by topic and outcome.",
	}, []string{"topic", "outcome"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lazywalker",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time to publish and settle one claimed batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	deadLetterTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lazywalker",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "Dead-letter entries handled by the DLQ manager, by event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	deadLetterBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lazywalker",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "Dead-letter entries waiting for a retry (quarantined entries excluded).",
	})
)

func init() {
	prometheus.MustRegister(eventsTotal, batchDuration, deadLetterTotal, deadLetterBacklog)
}

func countEvents(topic, outcome string, n int) {
	if n > 0 {
		eventsTotal.WithLabelValues(topic, outcome).Add(float64(n))
	}
}

func countDeadLetter(e deadLetter, outcome string) {
	deadLetterTotal.WithLabelValues(e.Topic, e.Type, outcome).Inc()
}
