package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmerrifield20/custodyledger/internal/custody"
)

var (
	custodyEvidenceTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "custody_evidence_total",
		Help: "Number of registered evidence items.",
	})

	custodyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	custodyRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "custody_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	custodyBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_ledger_blocks_total",
		Help: "Ledger blocks appended by action.",
	}, []string{"action"})

	custodyVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_ledger_verifications_total",
		Help: "Ledger integrity checks by result.",
	}, []string{"result"})

	custodyLedgerValid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "custody_ledger_valid",
		Help: "1 if the most recent integrity check passed, 0 otherwise.",
	})

	custodySinkFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_sink_failures_total",
		Help: "Failed mirror writes by sink.",
	}, []string{"sink"})

	custodyMirrorChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_mirror_checks_total",
		Help: "Mirror verification probes by sink and result.",
	}, []string{"sink", "result"})

	custodyWebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_webhook_deliveries_total",
		Help: "Total webhook deliveries by success status.",
	}, []string{"status"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		custodyRequestsTotal.WithLabelValues(method, path, status).Inc()
		custodyRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// SessionMetrics returns callbacks that feed session outcomes into Prometheus.
func SessionMetrics() custody.MetricsRecorder {
	return custody.MetricsRecorder{
		BlockAppended: RecordBlockAppended,
		Verified:      RecordVerification,
		SinkFailed:    RecordSinkFailure,
		EvidenceCount: SetEvidenceGauge,
	}
}

// RecordBlockAppended records a ledger append.
func RecordBlockAppended(action string) {
	custodyBlocksTotal.WithLabelValues(action).Inc()
}

// RecordVerification records an integrity check result.
func RecordVerification(valid bool) {
	custodyVerificationsTotal.WithLabelValues(result(valid)).Inc()
	if valid {
		custodyLedgerValid.Set(1)
	} else {
		custodyLedgerValid.Set(0)
	}
}

// RecordSinkFailure records a failed mirror write.
func RecordSinkFailure(sink string) {
	custodySinkFailuresTotal.WithLabelValues(sink).Inc()
}

// RecordMirrorCheck records a mirror verification probe.
func RecordMirrorCheck(sink string, ok bool) {
	custodyMirrorChecksTotal.WithLabelValues(sink, result(ok)).Inc()
}

// RecordWebhookDelivery records a webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	custodyWebhookDeliveriesTotal.WithLabelValues(result(success)).Inc()
}

// SetEvidenceGauge sets the evidence count gauge.
func SetEvidenceGauge(n int) {
	custodyEvidenceTotal.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
