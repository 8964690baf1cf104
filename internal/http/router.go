package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmaksimov/seat-sync/internal/observability"
	"github.com/rmaksimov/seat-sync/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.Limiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Get("/v1/seats", h.ListSeats)
	r.Post("/v1/seats/book", h.BookSeat)
	r.Post("/v1/seats/cancel", h.CancelBooking)
	r.Get("/v1/seats/stream", h.StreamSeats)
	r.Post("/v1/validations", h.ValidateCredential)
	r.Get("/v1/validations/{bookingID}", h.ValidationHistory)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
