// internal/metrics/prometheus.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_api_request_duration_seconds",
			Help:    "Time spent on backend requests, per attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_api_requests_total",
			Help: "Total backend request attempts by outcome",
		},
		[]string{"op", "outcome"},
	)

	RetryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_api_retries_total",
			Help: "Retries scheduled after a retryable failure",
		},
		[]string{"op", "kind"},
	)

	DashboardRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_dashboard_refresh_total",
			Help: "Dashboard refreshes performed by the agent",
		},
		[]string{"status"},
	)

	EndpointsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_dashboard_endpoints",
			Help: "Endpoints in the last dashboard snapshot by status",
		},
		[]string{"status"},
	)

	NotificationsUnread = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_notifications_unread",
			Help: "Unread notifications in the local inbox",
		},
	)

	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_storage_operations_total",
			Help: "Total local storage operations performed",
		},
		[]string{"operation", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// Collector records pulse metrics on the package-level vectors.
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

// ObserveRequest records one request attempt.
func (c *Collector) ObserveRequest(op, outcome string, elapsed time.Duration) {
	RequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	RequestTotal.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) ObserveRetry(op, kind string) {
	RetryTotal.WithLabelValues(op, kind).Inc()
}

func (c *Collector) RecordDashboardRefresh(err error, counts map[string]int) {
	if err != nil {
		DashboardRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	DashboardRefreshTotal.WithLabelValues("success").Inc()
	for status, n := range counts {
		EndpointsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (c *Collector) SetUnread(n int) {
	NotificationsUnread.Set(float64(n))
}

func (c *Collector) RecordStorageOperation(operation string, err error) {
	StorageOperations.WithLabelValues(operation, getStatusLabel(err)).Inc()
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}

func getStatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
