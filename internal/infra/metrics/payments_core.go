package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookEventsTotal,
		grantsTotal,
		grantsFailedTotal,
		revocationsTotal,
		processingSeconds,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Processed webhook events by terminal outcome (accepted/ignored/rejected/failed).",
		},
		[]string{"outcome"},
	)

	grantsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grants_total",
			Help: "Resource grants confirmed by the permission system.",
		},
	)

	grantsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grants_failed_total",
			Help: "Resource grant attempts the permission system rejected (includes partial failures).",
		},
	)

	revocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocations_total",
			Help: "Revoke attempts by result (removed/missing).",
		},
		[]string{"result"},
	)

	processingSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_processing_seconds",
			Help:    "End-to-end processing time of one webhook event.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func IncWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncGrant()       { grantsTotal.Inc() }
func IncGrantFailed() { grantsFailedTotal.Inc() }

func IncRevocation(removed bool) {
	result := "removed"
	if !removed {
		result = "missing"
	}
	revocationsTotal.WithLabelValues(result).Inc()
}

func ObserveProcessing(d time.Duration) {
	processingSeconds.Observe(d.Seconds())
}
