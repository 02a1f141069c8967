// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// YouTube proxy counters, labeled by operation (search, video, playlist, suggest).
	ProxyRequests  *prometheus.CounterVec
	ProxyFailures  *prometheus.CounterVec
	ProxyFallbacks *prometheus.CounterVec

	// Session counters
	SessionsCreated prometheus.Counter
	SessionsRevoked prometheus.Counter

	// Metadata backfill
	BackfillCycles  prometheus.Counter
	BackfillUpdated prometheus.Counter

	// Histograms (seconds)
	HTTPRequestDuration prometheus.Observer
	ProxyCallDuration   prometheus.Observer

	// Gauges
	ActiveSessionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clipdeck_proxy_requests_total", Help: "YouTube proxy requests by operation"}, []string{"op"})
		ProxyFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clipdeck_proxy_failures_total", Help: "YouTube proxy upstream failures by operation"}, []string{"op"})
		ProxyFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clipdeck_proxy_fallbacks_total", Help: "YouTube proxy degraded-mode responses by operation"}, []string{"op"})
		SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "clipdeck_sessions_created_total", Help: "Sessions created via OAuth callback"})
		SessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{Name: "clipdeck_sessions_revoked_total", Help: "Sessions revoked via logout or expiry sweep"})
		BackfillCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "clipdeck_backfill_cycles_total", Help: "Metadata backfill job cycles"})
		BackfillUpdated = promauto.NewCounter(prometheus.CounterOpts{Name: "clipdeck_backfill_updated_total", Help: "Rows updated by the metadata backfill job"})
		HTTPRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clipdeck_http_request_duration_seconds", Help: "HTTP request duration seconds", Buckets: prometheus.DefBuckets})
		ProxyCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clipdeck_proxy_call_duration_seconds", Help: "YouTube proxy upstream call duration seconds", Buckets: prometheus.DefBuckets})
		ActiveSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "clipdeck_active_sessions", Help: "Current number of unexpired sessions"})
	})
}

// CountProxy records a proxy request and, when applicable, its failure or
// fallback outcome. Safe to call before Init (no-op).
func CountProxy(op string, failed, fallback bool) {
	if ProxyRequests == nil {
		return
	}
	ProxyRequests.WithLabelValues(op).Inc()
	if failed {
		ProxyFailures.WithLabelValues(op).Inc()
	}
	if fallback {
		ProxyFallbacks.WithLabelValues(op).Inc()
	}
}

// SetActiveSessions records the current unexpired session count.
func SetActiveSessions(n int) {
	if ActiveSessionsGauge != nil {
		ActiveSessionsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
