// Package observability holds the logger constructor and the progression metrics
// shared by the API and the CLI.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Grant kinds used as the "kind" label.
const (
	GrantKindBadge     = "badge"
	GrantKindMilestone = "milestone"
	GrantKindKudos     = "kudos"
)

// Notification outcomes used as the "result" label.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

var (
	walkPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lazywalker",
		Subsystem: "persistence",
		Name:      "last_walk_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent walk persisted.",
	})
	walksSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lazywalker",
		Subsystem: "progression",
		Name:      "walks_submitted_total",
		Help:      "Total walks accepted by the progression engine.",
	})
	grantsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lazywalker",
		Subsystem: "progression",
		Name:      "grants_total",
		Help:      "Badges, milestones and kudos granted, by kind and type.",
	}, []string{"kind", "type"})
	stepFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lazywalker",
		Name:      "progression_step_failures_total",
		Help:      "Recoverable failures in post-submission progression steps.",
	}, []string{"step"})
	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lazywalker",
		Subsystem: "notify",
		Name:      "notifications_total",
		Help:      "Kudos notification outcomes.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(walkPersistGauge, walksSubmitted, grantsTotal, stepFailures, notifications)
}

// RecordWalkPersisted updates the persistence watermark gauge.
func RecordWalkPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	walkPersistGauge.Set(float64(ts.Unix()))
}

// RecordWalkSubmitted increments the accepted walk counter.
func RecordWalkSubmitted() {
	walksSubmitted.Inc()
}

// RecordGrant counts a newly persisted grant.
func RecordGrant(kind, grantType string) {
	grantsTotal.WithLabelValues(kind, grantType).Inc()
}

// RecordStepFailure counts a swallowed failure in a progression step.
func RecordStepFailure(step string) {
	stepFailures.WithLabelValues(step).Inc()
}

// RecordNotification counts a notification outcome.
func RecordNotification(result string) {
	notifications.WithLabelValues(result).Inc()
}

// StepFailures exposes the step failure collector for assertions.
func StepFailures() *prometheus.CounterVec {
	return stepFailures
}

// Grants exposes the grant collector for assertions.
func Grants() *prometheus.CounterVec {
	return grantsTotal
}
