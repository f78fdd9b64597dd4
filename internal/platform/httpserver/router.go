package httpserver

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/anime-crud/internal/platform/api"
)

// RouterConfig tunes SetupRouter. The zero value is usable.
type RouterConfig struct {
	Logger *zap.Logger
	// ReadyFunc backs /readyz; nil means always ready.
	ReadyFunc func(ctx context.Context) error
	// Metrics exposes /metrics and records per-route HTTP metrics.
	Metrics     bool
	RateLimiter *RateLimiter
	// Middlewares run after the base chain, before any route handler.
	Middlewares []func(http.Handler) http.Handler
}

// SetupRouter attaches base middlewares and common endpoints.
// IMPORTANT: must be called before registering any routes.
func SetupRouter(r chi.Router, cfgs ...RouterConfig) {
	var cfg RouterConfig
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// Correlation / request id
	r.Use(RequestIDMiddleware(RequestIDHeader))
	r.Use(Recoverer(log))
	r.Use(AccessLog(log))
	if cfg.Metrics {
		r.Use(MetricsMiddleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}
	for _, mw := range cfg.Middlewares {
		r.Use(mw)
	}

	// Health endpoints
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.ReadyFunc != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.ReadyFunc(ctx); err != nil {
				log.Warn("readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready: " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
}

// Recoverer turns handler panics into a 500 JSON error. http.ErrAbortHandler
// is re-raised so net/http drops the connection, which is how a partially
// written streaming response is aborted.
func Recoverer(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				panicRecoveries.Inc()
				rid := RequestIDFromContext(r.Context())
				log.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", rid),
					zap.Stack("stack"))
				api.Internal(w, r.URL.Path, rid)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog writes one structured entry per request.
func AccessLog(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routePattern(r)),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				log.Warn("http request", fields...)
				return
			}
			log.Debug("http request", fields...)
		})
	}
}

// routePattern returns the matched chi pattern, or "unmatched". Using the
// pattern instead of the raw path keeps metric label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func parseCORSOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
