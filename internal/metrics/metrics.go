// Package metrics provides Prometheus instrumentation for the walletguard service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "walletguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AnalysesTotal counts completed risk analyses by result level.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletguard",
			Name:      "analyses_total",
			Help:      "Total risk analyses completed by risk level.",
		},
		[]string{"level"},
	)

	// RiskScores observes the distribution of aggregated risk scores.
	RiskScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "walletguard",
		Name:      "risk_score",
		Help:      "Distribution of aggregated risk scores.",
		Buckets:   []float64{10, 25, 50, 70, 80, 90, 95, 99},
	})

	// DetectionsTotal counts detector hits by category.
	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletguard",
			Name:      "detections_total",
			Help:      "Total heuristic detections by category.",
		},
		[]string{"category"},
	)

	// TransferDecisionsTotal counts transfer gate outcomes.
	TransferDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletguard",
			Name:      "transfer_decisions_total",
			Help:      "Total transfer gate decisions by outcome and reason.",
		},
		[]string{"outcome", "reason"},
	)

	// AlertsRaisedTotal counts raised alerts by severity.
	AlertsRaisedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletguard",
			Name:      "alerts_raised_total",
			Help:      "Total security alerts raised by severity.",
		},
		[]string{"severity"},
	)

	// ScanCyclesTotal counts scanner cycles by result.
	ScanCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletguard",
			Name:      "scan_cycles_total",
			Help:      "Total background scan cycles by result.",
		},
		[]string{"result"},
	)

	// ActiveAlertSubscribers tracks connected WebSocket subscribers.
	ActiveAlertSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "walletguard",
			Name:      "active_alert_subscribers",
			Help:      "Number of currently connected WebSocket alert subscribers.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletguard", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletguard", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletguard", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletguard", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletguard", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AnalysesTotal,
		RiskScores,
		DetectionsTotal,
		TransferDecisionsTotal,
		AlertsRaisedTotal,
		ScanCyclesTotal,
		ActiveAlertSubscribers,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
