package observability

import (
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the wallet BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	opDuration    *prometheus.HistogramVec
	payments      *prometheus.CounterVec
	pinAttempts   *prometheus.CounterVec
	scans         *prometheus.CounterVec
	storeWrites   *prometheus.CounterVec
	sessionHits   prometheus.Counter
	sessionMisses prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upi_operation_duration_seconds",
				Help:    "Duration of wallet operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		payments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upi_payments_total",
				Help: "Payments committed to the ledger.",
			},
			[]string{"payee_kind"},
		),
		pinAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upi_pin_attempts_total",
				Help: "PIN verifications by result.",
			},
			[]string{"result"},
		),
		scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upi_scans_total",
				Help: "QR scans by outcome.",
			},
			[]string{"outcome"},
		),
		storeWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upi_store_writes_total",
				Help: "Local store writes by key and status.",
			},
			[]string{"key", "status"},
		),
		sessionHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "upi_session_cache_hits_total",
			Help: "Payment session lookups that found a live session.",
		}),
		sessionMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "upi_session_cache_misses_total",
			Help: "Payment session lookups for expired or unknown sessions.",
		}),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.opDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrPayment counts a committed payment. kind is "merchant" or "personal".
func (m *Metrics) IncrPayment(kind string) {
	m.payments.WithLabelValues(kind).Inc()
}

// IncrPINAttempt counts a PIN check.
func (m *Metrics) IncrPINAttempt(ok bool) {
	if ok {
		m.pinAttempts.WithLabelValues("match").Inc()
		return
	}
	m.pinAttempts.WithLabelValues("mismatch").Inc()
}

// IncrScan counts a scan outcome: resolved, rejected or error.
func (m *Metrics) IncrScan(outcome string) {
	m.scans.WithLabelValues(outcome).Inc()
}

// IncrStoreWrite counts a store write.
func (m *Metrics) IncrStoreWrite(key string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storeWrites.WithLabelValues(key, status).Inc()
}

// IncrSessionHit increments the session cache hit counter.
func (m *Metrics) IncrSessionHit() { m.sessionHits.Inc() }

// IncrSessionMiss increments the session cache miss counter.
func (m *Metrics) IncrSessionMiss() { m.sessionMisses.Inc() }

// Summary returns a snapshot suitable for GET /v1/metrics/summary.
// activeSessions is supplied by the caller because the registry is not a metric.
func (m *Metrics) Summary(activeSessions int) *domain.MetricsSummary {
	matches := counterValue(m.pinAttempts.WithLabelValues("match"))
	mismatches := counterValue(m.pinAttempts.WithLabelValues("mismatch"))
	hits := counterValue(m.sessionHits)
	misses := counterValue(m.sessionMisses)

	writeFailures := sumByLabel(m.storeWrites, "status", "error")

	failureRate := float64(0)
	if matches+mismatches > 0 {
		failureRate = mismatches / (matches + mismatches)
	}
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.MetricsSummary{
		PaymentsCompleted: int64(counterValue(m.payments.WithLabelValues("merchant")) +
			counterValue(m.payments.WithLabelValues("personal"))),
		PINAttempts:        int64(matches + mismatches),
		PINFailureRate:     failureRate,
		ScansResolved:      int64(counterValue(m.scans.WithLabelValues("resolved"))),
		ScansRejected:      int64(counterValue(m.scans.WithLabelValues("rejected"))),
		StoreWriteFailures: int64(writeFailures),
		SessionHitRate:     hitRate,
		ActiveSessions:     activeSessions,
		Period:             "since_start",
	}
}

// counterValue extracts the current float64 value of a counter.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumByLabel adds up every series of cv whose label name has the given value.
func sumByLabel(cv *prometheus.CounterVec, name, value string) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		var pb dto.Metric
		if err := metric.Write(&pb); err != nil || pb.Counter == nil {
			continue
		}
		for _, lp := range pb.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				total += pb.Counter.GetValue()
			}
		}
	}
	return total
}
