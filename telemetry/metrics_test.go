package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitRegistersCollectors(t *testing.T) {
	Init()

	if ProxyRequests == nil {
		t.Error("ProxyRequests counter not initialized")
	}
	if ProxyFailures == nil {
		t.Error("ProxyFailures counter not initialized")
	}
	if ProxyFallbacks == nil {
		t.Error("ProxyFallbacks counter not initialized")
	}
	if HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration histogram not initialized")
	}
	if SessionsCreated == nil || SessionsRevoked == nil {
		t.Error("session counters not initialized")
	}
}

func TestCountProxy(t *testing.T) {
	Init()

	// Must not panic for any outcome combination.
	CountProxy("search", false, false)
	CountProxy("video", true, false)
	CountProxy("playlist", false, true)
	CountProxy("suggest", true, true)

	metric := &dto.Metric{}
	if err := ProxyFallbacks.WithLabelValues("playlist").Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.Counter.GetValue() < 1 {
		t.Error("fallback counter not incremented")
	}
}

func TestSetActiveSessions(t *testing.T) {
	Init()

	for _, n := range []int{0, 5, 100} {
		SetActiveSessions(n)
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil || *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestTimeFuncNilObserver(t *testing.T) {
	d := TimeFunc(nil, func() {})
	if d < 0 {
		t.Errorf("TimeFunc duration = %v", d)
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation(empty) = %q, want empty", got)
	}

	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation() = %q, want abc-123", got)
	}

	if logger := LoggerWithCorr(ctx); logger == nil {
		t.Error("LoggerWithCorr returned nil")
	}
	if logger := LoggerWithCorr(context.Background()); logger == nil {
		t.Error("LoggerWithCorr without corr returned nil")
	}
}
