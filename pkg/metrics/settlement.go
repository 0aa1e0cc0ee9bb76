package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records capture and release outcomes.
type SettlementMetrics struct {
	captures *prometheus.CounterVec
	releases *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on the provided
// registerer. A nil registerer yields a no-op recorder, which keeps tests
// and tooling free of global registry collisions.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_captures_total",
		Help: "Payment capture attempts by outcome.",
	}, []string{"outcome"})
	releases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_releases_total",
		Help: "Fund release attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_operation_duration_seconds",
		Help:    "Duration of settlement operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(captures, releases, duration)
	return &SettlementMetrics{
		captures: captures,
		releases: releases,
		duration: duration,
	}
}

// IncCapture counts a capture attempt outcome (succeeded/already_paid/failed).
func (s *SettlementMetrics) IncCapture(outcome string) {
	if s == nil || s.captures == nil {
		return
	}
	s.captures.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRelease counts a release attempt outcome
// (released/already_transferred/refused/failed).
func (s *SettlementMetrics) IncRelease(outcome string) {
	if s == nil || s.releases == nil {
		return
	}
	s.releases.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long the named operation took.
func (s *SettlementMetrics) ObserveDuration(operation string, d time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
