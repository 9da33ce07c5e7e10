package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes used as the "outcome" label.
const (
	outcomeHandled       = "handled"
	outcomeUndecodable   = "undecodable"
	outcomeHandlerFailed = "handler_failed"
)

var (
	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lazywalker",
		Subsystem: "consumer",
		Name:      "records_total",
		Help:      "Consumed records by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	lastHandled = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lazywalker",
		Subsystem: "consumer",
		Name:      "last_handled_timestamp_seconds",
		Help:      "Produce time of the newest handled record per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(recordsTotal, lastHandled)
}

func countRecord(topic, eventType, outcome string) {
	recordsTotal.WithLabelValues(topic, eventType, outcome).Inc()
}

func markHandled(msg Message) {
	countRecord(msg.Topic, msg.EventType, outcomeHandled)
	if !msg.Timestamp.IsZero() {
		lastHandled.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}
