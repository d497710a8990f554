// Package metrics provides Prometheus instrumentation for the paper engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts executed trades, partitioned by asset and side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_trades_total",
		Help: "Total number of trades executed",
	}, []string{"asset", "side"})

	// TradeRejections counts trades rejected before any mutation.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_trade_rejections_total",
		Help: "Trades rejected by validation, funds, holdings, or risk checks",
	}, []string{"reason"})

	// PredictionsCreated counts predictions, partitioned by asset and direction.
	PredictionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_predictions_created_total",
		Help: "Total number of predictions created",
	}, []string{"asset", "direction"})

	// PredictionsResolved counts resolutions by terminal status.
	PredictionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_predictions_resolved_total",
		Help: "Total number of predictions resolved",
	}, []string{"status"})

	// RewardsCredited accumulates SHM reward tokens credited for wins.
	RewardsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paper_rewards_credited_shm_total",
		Help: "Cumulative SHM reward tokens credited",
	})

	// SweepDuration tracks resolution sweep latency.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paper_sweep_duration_seconds",
		Help:    "Resolution sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// VersionConflicts counts optimistic-concurrency retries.
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paper_account_version_conflicts_total",
		Help: "Account updates retried after an optimistic version conflict",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paper_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paper_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
