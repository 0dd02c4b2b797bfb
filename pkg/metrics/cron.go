package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "giftdesk"

// Cron run outcomes.
const (
	CronSucceeded = "succeeded"
	CronFailed    = "failed"
	CronPanicked  = "panicked"
	CronSkipped   = "skipped"
)

// CronJobMetrics records each scheduled run. Skipped runs lost the lock to
// another replica and carry no duration.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// NewCronJobMetrics registers on reg; a nil registerer gives a no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "runs_total",
			Help:      "Scheduled job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "run_duration_seconds",
			Help:      "Wall time of scheduled job runs that held the lock.",
			Buckets:   []float64{.05, .25, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// Finished records a run that held the lock.
func (c *CronJobMetrics) Finished(job, outcome string, took time.Duration, at time.Time) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if outcome == CronSucceeded {
		c.lastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
	}
}

func (c *CronJobMetrics) Skipped(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), CronSkipped).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
