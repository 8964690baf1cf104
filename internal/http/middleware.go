package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/rmaksimov/seat-sync/internal/observability"
	"github.com/rmaksimov/seat-sync/internal/ratelimit"
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), loggerKey{}, entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type loggerKey struct{}

// RequestLogger returns the request-scoped logger, or fallback when the
// middleware did not run.
func RequestLogger(ctx context.Context, fallback observability.Logger) observability.Logger {
	if l, ok := ctx.Value(loggerKey{}).(observability.Logger); ok {
		return l
	}
	return fallback
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware rejects clients past the per-IP allowance. A nil
// limiter disables limiting (no redis configured).
func RateLimitMiddleware(rl *ratelimit.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(r.Context(), "ip:"+r.RemoteAddr, 100, time.Minute) {
				observability.RateLimitExceeded.Inc()
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
