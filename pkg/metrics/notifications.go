package metrics

import "github.com/prometheus/client_golang/prometheus"

// Notification outcomes.
const (
	NotificationSent    = "sent"
	NotificationSkipped = "skipped"
	NotificationRetried = "retried"
)

type NotificationMetrics struct {
	processed *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	m := &NotificationMetrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_processed_total",
			Help:      "Notification events handled by event type and outcome.",
		}, []string{"event_type", "outcome"}),
	}
	reg.MustRegister(m.processed)
	return m
}

func (m *NotificationMetrics) Processed(eventType, outcome string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
