package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vaxline/booking-engine/internal/booking"
)

type RouterConfig struct {
	Service      *booking.Service
	Availability *booking.AvailabilityCalculator
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	AuthSecret   string
	WindowDays   int
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthSecret))

		r.With(RequireRole(RolePerson)).Post("/appointments", bookAppointmentHandler(cfg.Service))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.With(RequireRole(RolePerson)).Put("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.With(RequireRole(RoleLocation, RoleLocationStaff)).Put("/appointments/{id}/status", setStatusHandler(cfg.Service))
		r.With(RequireRole(RoleLocation, RoleLocationStaff)).Put("/appointments/done", checkInHandler(cfg.Service))

		r.With(RequireRole(RoleLocation, RoleCentralAuthority)).Post("/capacity", registerCapacityHandler(cfg.Service))
		r.With(RequireRole(RoleLocation, RoleCentralAuthority)).Put("/capacity/{location}", updateCapacityHandler(cfg.Service))
		r.Get("/capacity/{location}", getCapacityHandler(cfg.Service))
		r.With(RequireRole(RoleLocation, RoleLocationStaff, RoleCentralAuthority)).
			Get("/capacity/{location}/schedule-next-30", scheduleWindowHandler(cfg.Availability, cfg.WindowDays))
		r.Get("/capacity/{location}/available-next-30", availableWindowHandler(cfg.Availability, cfg.WindowDays))
	})

	return r
}
