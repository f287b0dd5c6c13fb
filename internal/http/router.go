package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/pet-services-marketplace/internal/auth"
	"github.com/robertarktes/pet-services-marketplace/internal/idempotency"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"github.com/robertarktes/pet-services-marketplace/internal/rateLimit"
)

type RouterConfig struct {
	Tokens         *auth.Service
	RateLimiter    *rateLimit.RateLimiter
	RatePerMinute  int
	Idempotency    *idempotency.Idempotency
	AllowedOrigins []string
}

func SetupRouter(h *Handlers, logger observability.Logger, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	r.Get("/health", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(cfg.RateLimiter, cfg.RatePerMinute))
			r.Post("/users/register", h.Register)
			r.Post("/users/login", h.Login)
			r.Get("/pets", h.ListPets)
			r.Get("/pets/{id}", h.GetPet)
			r.Get("/services", h.ListServices)
			r.Get("/services/{id}", h.GetService)
		})

		r.Group(func(r chi.Router) {
			r.Use(JWTMiddleware(cfg.Tokens))
			r.Use(RateLimitMiddleware(cfg.RateLimiter, cfg.RatePerMinute))

			r.Get("/users/profile", h.GetProfile)
			r.Put("/users/profile", h.UpdateProfile)

			r.Post("/pets", h.CreatePet)
			r.Put("/pets/{id}", h.UpdatePet)
			r.Delete("/pets/{id}", h.DeletePet)

			r.Post("/services", h.CreateService)
			r.Put("/services/{id}", h.UpdateService)
			r.Delete("/services/{id}", h.DeleteService)

			r.Get("/bookings", h.ListBookings)
			r.Get("/bookings/{id}", h.GetBooking)
			r.With(ContentFilterMiddleware, IdempotencyMiddleware(cfg.Idempotency, logger)).
				Post("/bookings", h.CreateBooking)
			r.Put("/bookings/{id}/status", h.UpdateBookingStatus)
			r.Post("/bookings/{id}/complete", h.CompleteBooking)
			r.Post("/bookings/{id}/cancel", h.CancelBooking)
			r.Post("/bookings/{id}/review", h.ReviewBooking)
		})
	})

	return r
}
