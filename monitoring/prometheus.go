package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type faucetPromMetrics struct {
	requestCount          *prometheus.CounterVec
	quotaDenyCount        *prometheus.CounterVec
	dispatchAttemptCount  prometheus.Counter
	sequenceConflictCount prometheus.Counter
	stabilizeSeconds      prometheus.Histogram
	auditWriteFailures    prometheus.Counter
	panicCount            prometheus.Counter
}

var metrics = newFaucetPromMetrics()

func newFaucetPromMetrics() *faucetPromMetrics {
	return &faucetPromMetrics{
		requestCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faucet_requests_total",
			Help: "Inbound faucet requests by final outcome",
		}, []string{"outcome"}),
		quotaDenyCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faucet_quota_denials_total",
			Help: "Quota denials by kind (ip, address, both)",
		}, []string{"kind"}),
		dispatchAttemptCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faucet_dispatch_attempts_total",
			Help: "Individual broadcast attempts including retries",
		}),
		sequenceConflictCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faucet_sequence_conflicts_total",
			Help: "Broadcast attempts rejected for a stale account sequence",
		}),
		stabilizeSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "faucet_sequence_stabilize_seconds",
			Help:    "Wall-clock time spent waiting for the account sequence to quiesce",
			Buckets: prometheus.ExponentialBuckets(0.2, 2, 8),
		}),
		auditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faucet_audit_write_failures_total",
			Help: "Audit records that could not be persisted",
		}),
		panicCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faucet_panics_total",
			Help: "Recovered panics in background goroutines",
		}),
	}
}

func RecordRequest(outcome string) {
	metrics.requestCount.WithLabelValues(outcome).Inc()
}

func RecordQuotaDenial(kind string) {
	metrics.quotaDenyCount.WithLabelValues(kind).Inc()
}

func RecordDispatchAttempt() {
	metrics.dispatchAttemptCount.Inc()
}

func RecordSequenceConflict() {
	metrics.sequenceConflictCount.Inc()
}

func ObserveStabilizeDuration(seconds float64) {
	metrics.stabilizeSeconds.Observe(seconds)
}

func RecordAuditWriteFailure() {
	metrics.auditWriteFailures.Inc()
}

func IncreasePanicCount() {
	metrics.panicCount.Inc()
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
