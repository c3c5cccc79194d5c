// Package metrics provides Prometheus instrumentation for the journal service.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesCreated counts journal entries recorded, partitioned by direction.
	TradesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maestria_trades_created_total",
		Help: "Total number of trades recorded",
	}, []string{"direction"})

	// TradesDeleted counts delete requests that reached the store.
	TradesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maestria_trades_deleted_total",
		Help: "Total number of trade delete requests",
	})

	// ValidationRejections counts trade inputs refused before storage.
	ValidationRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maestria_validation_rejections_total",
		Help: "Trade inputs rejected by validation",
	})

	// NarratorCalls counts insight requests by outcome:
	// placeholder, ok, fallback.
	NarratorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maestria_narrator_calls_total",
		Help: "Insight narrator requests by outcome",
	}, []string{"outcome"})

	// NarratorLatency tracks the external completion round trip.
	NarratorLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "maestria_narrator_latency_seconds",
		Help:    "Narrator completion latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "maestria_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maestria_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maestria_http_request_duration_seconds",
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
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps the path label bounded: /api/trades/{tradeID} instead
// of one series per trade id.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
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

// Hijack passes through to the underlying writer for WebSocket upgrades.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
