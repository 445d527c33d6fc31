package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and for
// the reconciliation engine. The engine-side methods are nil-safe so
// components can run without a collector in tests.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cyclesTotal      prometheus.Counter
	listingsChecked  prometheus.Counter
	escalationsTotal prometheus.Counter
	pushFailures     prometheus.Counter
	snapshotFailures prometheus.Counter
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bidmanager",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bidmanager",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	cyclesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bidmanager",
		Subsystem: "reconcile",
		Name:      "cycles_total",
		Help:      "Number of reconciliation cycles run.",
	})

	listingsChecked := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bidmanager",
		Subsystem: "reconcile",
		Name:      "listings_checked_total",
		Help:      "Number of listings matched against a search snapshot.",
	})

	escalationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bidmanager",
		Subsystem: "reconcile",
		Name:      "escalations_total",
		Help:      "Number of bid escalations pushed successfully.",
	})

	pushFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bidmanager",
		Subsystem: "reconcile",
		Name:      "push_failures_total",
		Help:      "Number of failed bid pushes.",
	})

	snapshotFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bidmanager",
		Subsystem: "reconcile",
		Name:      "snapshot_failures_total",
		Help:      "Number of search snapshot fetches that failed.",
	})

	collectors := []prometheus.Collector{
		requestDuration, requestTotal,
		cyclesTotal, listingsChecked, escalationsTotal, pushFailures, snapshotFailures,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:         registry,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cyclesTotal:      cyclesTotal,
		listingsChecked:  listingsChecked,
		escalationsTotal: escalationsTotal,
		pushFailures:     pushFailures,
		snapshotFailures: snapshotFailures,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// CycleRun records a completed reconciliation cycle.
func (c *Collector) CycleRun() {
	if c != nil {
		c.cyclesTotal.Inc()
	}
}

// ListingChecked records a listing matched against a snapshot.
func (c *Collector) ListingChecked() {
	if c != nil {
		c.listingsChecked.Inc()
	}
}

// EscalationPushed records a successful bid escalation.
func (c *Collector) EscalationPushed() {
	if c != nil {
		c.escalationsTotal.Inc()
	}
}

// PushFailed records a failed bid push.
func (c *Collector) PushFailed() {
	if c != nil {
		c.pushFailures.Inc()
	}
}

// SnapshotFailed records a failed search snapshot fetch.
func (c *Collector) SnapshotFailed() {
	if c != nil {
		c.snapshotFailures.Inc()
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
