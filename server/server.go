// Package server exposes the HTTP API: health, status, metrics, Google
// sign-in, project/segment/queue CRUD, and the YouTube proxy used by the
// frontend. It includes permissive CORS for development and injects
// correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/clipdeck/config"
	"github.com/onnwee/clipdeck/telemetry"
	"github.com/onnwee/clipdeck/youtubeapi"
)

// NewMux returns the HTTP handler with all routes.
// The provided context is used for rate limiter cleanup goroutine lifecycle.
func NewMux(ctx context.Context, db *sql.DB, cfg *config.Config, yt *youtubeapi.Client) http.Handler {
	rateLimiterCfg := loadRateLimiterConfig()
	corsCfg := loadCORSConfig()
	rateLimiter := newIPRateLimiter(ctx, rateLimiterCfg)

	handlers := NewHandlers(db, cfg, yt)

	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// OAuth + session endpoints
	mux.HandleFunc("/auth/google/start", handlers.HandleGoogleOAuthStart)
	mux.HandleFunc("/auth/google/callback", handlers.HandleGoogleOAuthCallback)
	mux.HandleFunc("/auth/logout", handlers.HandleLogout)
	mux.HandleFunc("/auth/me", handlers.HandleMe)

	// Health and readiness endpoints
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/readyz", handlers.HandleReadyz)

	// Config and status endpoints
	mux.HandleFunc("/config", handlers.HandleConfig)
	mux.HandleFunc("/status", handlers.HandleStatus)

	// Project endpoints
	mux.HandleFunc("/api/projects", handlers.HandleProjects)
	mux.HandleFunc("/api/projects/", handlers.HandleProjectsDispatcher)

	// Segment endpoints
	mux.HandleFunc("/api/segments", handlers.HandleSegments)
	mux.HandleFunc("/api/segments/", handlers.HandleSegmentsDispatcher)

	// Queue endpoints
	mux.HandleFunc("/api/queue", handlers.HandleQueue)
	mux.HandleFunc("/api/queue/", handlers.HandleQueueDispatcher)

	// YouTube proxy endpoints
	mux.HandleFunc("/api/youtube/search", handlers.HandleYouTubeSearch)
	mux.HandleFunc("/api/youtube/video", handlers.HandleYouTubeVideo)
	mux.HandleFunc("/api/youtube/playlist", handlers.HandleYouTubePlaylist)
	mux.HandleFunc("/api/youtube/suggest", handlers.HandleYouTubeSuggest)

	// Selective middleware: /api/ needs a session and write rate limiting;
	// /auth/me and /auth/logout need a session; everything else is open.
	authed := handlers.requireSession(rateLimitWrites(mux, rateLimiter))
	selectiveHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			r.URL.Path == "/auth/me" || r.URL.Path == "/auth/logout" {
			authed.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	// Wrap with correlation ID injector and tracing middleware
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		// Start tracing span if enabled
		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
			telemetry.HTTPURLAttr(r.URL.String()),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		// Capture status code via custom ResponseWriter
		wrappedWriter := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		selectiveHandler.ServeHTTP(wrappedWriter, r.WithContext(ctx))
		if telemetry.HTTPRequestDuration != nil {
			telemetry.HTTPRequestDuration.Observe(time.Since(start).Seconds())
		}

		// Record HTTP status in span
		telemetry.SetSpanHTTPStatus(span, wrappedWriter.statusCode)
		if wrappedWriter.statusCode >= 400 {
			code, msg := telemetry.ErrorStatus(fmt.Sprintf("HTTP %d", wrappedWriter.statusCode))
			span.SetStatus(code, msg)
		}
	})
	return withCORSConfig(handler, corsCfg)
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, db *sql.DB, cfg *config.Config, yt *youtubeapi.Client, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(ctx, db, cfg, yt),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Shutdown goroutine
	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
