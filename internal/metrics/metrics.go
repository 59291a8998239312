// Package metrics provides Prometheus instrumentation for the energy engine.
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
	// TradesTotal counts executed trades.
	TradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_trades_total",
		Help: "Total number of trades executed",
	})

	// TradeRejections counts rejected trades, partitioned by reason.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_trade_rejections_total",
		Help: "Trades rejected by the feasibility check",
	}, []string{"reason"})

	// TradeLatency is a histogram of trade execution latency.
	TradeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "energy_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// TradedEnergy accumulates traded energy in kWh.
	TradedEnergy = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_traded_kwh_total",
		Help: "Cumulative traded energy in kWh",
	})

	// Participants tracks the number of registered participants.
	Participants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "energy_participants",
		Help: "Number of registered participants",
	})

	// NetworkLinks tracks the number of undirected trading links.
	NetworkLinks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "energy_network_links",
		Help: "Number of trading links in the network",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "energy_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "energy_http_request_duration_seconds",
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

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays bounded.
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
