package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/scheduling/internal/audit"
	"github.com/clinicore/scheduling/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	Sink    audit.Sink
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	sink := cfg.Sink
	if sink == nil {
		sink = audit.NopSink{}
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability
	r.Get("/doctors/{id}/slots", getSlotsHandler(cfg.Service))
	r.Get("/doctors/{id}/appointments", listDoctorDayHandler(cfg.Service))

	// Appointments
	r.Post("/appointments", createAppointmentHandler(cfg.Service, sink))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/transition", transitionAppointmentHandler(cfg.Service, sink))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service, sink))

	return r
}
