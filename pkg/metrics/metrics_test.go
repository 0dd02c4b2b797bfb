package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "gift-link-reminder"
	finished := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	m.Finished(job, CronSucceeded, 250*time.Millisecond, finished)
	m.Finished(job, CronFailed, time.Second, finished.Add(time.Hour))
	m.Skipped(job)
	m.Skipped(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for outcome, want := range map[string]float64{CronSucceeded: 1, CronFailed: 1, CronSkipped: 2} {
		got, err := fetchCounterValue(mfs, "giftdesk_cron_runs_total", "outcome", outcome)
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != want {
			t.Fatalf("expected %s=%v, got %v", outcome, want, got)
		}
	}

	sum, err := fetchHistogramSum(mfs, "giftdesk_cron_run_duration_seconds", "job", job)
	if err != nil {
		t.Fatalf("fetch duration: %v", err)
	}
	if sum != 1.25 {
		t.Fatalf("skipped runs must not observe a duration, sum=%v", sum)
	}

	last := findMetricFamily(mfs, "giftdesk_cron_last_success_timestamp_seconds")
	if last == nil || last.GetMetric()[0].GetGauge().GetValue() != float64(finished.Unix()) {
		t.Fatalf("last success should stay at the successful run, got %v", last)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewCronJobMetrics(nil).Skipped("x")
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/x", 200, time.Millisecond)
	NewGiftingMetrics(nil).Redemption(RedeemOK)
	var nilMetrics *GiftingMetrics
	nilMetrics.InvoiceGenerated("order")
}

func TestHTTPAndGiftingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := NewHTTPMetrics(reg)
	gifting := NewGiftingMetrics(reg)

	httpMetrics.Observe(http.MethodPost, "/api/v1/gifts/{token}/redeem", 201, 10*time.Millisecond)
	gifting.Redemption(RedeemOK)
	gifting.Redemption(RedeemRejected)
	gifting.Redemption(RedeemRejected)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "giftdesk_http_requests_total", "route", "/api/v1/gifts/{token}/redeem"); err != nil || got != 1 {
		t.Fatalf("expected one request, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "giftdesk_gift_redemptions_total", "outcome", RedeemRejected); err != nil || got != 2 {
		t.Fatalf("expected two rejected redemptions, got %v err=%v", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
