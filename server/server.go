// Package server exposes the HTTP API: health, metrics, archive metadata, and
// the chat transcript endpoints used by viewers. It includes configurable CORS
// and injects correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/telemetry"
)

// ArchiveService is the archive API served over HTTP.
type ArchiveService interface {
	Get(ctx context.Context, id string) (archive.Archive, error)
	List(ctx context.Context, channel string, limit int) ([]archive.Archive, error)
	Transcript(ctx context.Context, id string) (*archive.Transcript, error)
	Register(ctx context.Context, a archive.Archive) error
	Import(ctx context.Context, videoID string) (archive.Archive, error)
}

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Archives ArchiveService
	// Checks run on /readyz in order; the first failure is reported.
	Checks []Check
	// Redis backs the admin rate limiter when RATE_LIMIT_BACKEND=redis.
	Redis *redis.Client
}

// NewMux returns the HTTP handler with all routes.
// The provided context is used for rate limiter cleanup goroutines lifecycle.
func NewMux(ctx context.Context, deps Deps) http.Handler {
	authCfg := loadAuthConfig()
	rateLimiterCfg := loadRateLimiterConfig()
	corsCfg := loadCORSConfig()

	var rateLimiter RateLimiter
	if rateLimiterCfg.backend == "redis" && deps.Redis != nil {
		slog.Info("initializing distributed rate limiter", slog.String("backend", "redis"))
		rateLimiter = newRedisRateLimiter(deps.Redis, rateLimiterCfg)
	} else {
		if rateLimiterCfg.backend == "redis" {
			slog.Warn("redis rate limiter requested without REDIS_URL; falling back to memory")
		}
		slog.Info("initializing in-memory rate limiter", slog.String("backend", "memory"))
		rateLimiter = newIPRateLimiter(ctx, rateLimiterCfg)
	}

	handlers := NewHandlers(deps)

	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /healthz", handlers.HandleHealthz)
	mux.HandleFunc("GET /readyz", handlers.HandleReadyz)

	mux.HandleFunc("GET /archives", handlers.HandleArchivesList)
	mux.HandleFunc("GET /archives/feed", handlers.HandleArchivesFeed)
	mux.HandleFunc("GET /archives/{id}", handlers.HandleArchive)
	mux.HandleFunc("GET /archives/{id}/chat", handlers.HandleChatJSON)
	mux.HandleFunc("GET /archives/{id}/chat/locate", handlers.HandleChatLocate)
	mux.HandleFunc("GET /archives/{id}/chat/stream", handlers.HandleChatSSE)

	mux.HandleFunc("POST /admin/archives", handlers.HandleAdminRegister)
	mux.HandleFunc("POST /admin/archives/import", handlers.HandleAdminImport)

	admin := adminAuth(rateLimitMiddleware(mux, rateLimiter), authCfg)
	selectiveHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/admin/") {
			admin.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
			telemetry.HTTPURLAttr(r.URL.String()),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		wrappedWriter := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		selectiveHandler.ServeHTTP(wrappedWriter, r.WithContext(ctx))

		telemetry.RecordHTTP(r.Method, wrappedWriter.statusCode)
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

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, deps Deps, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(ctx, deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
