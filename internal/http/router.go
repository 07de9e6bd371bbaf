package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	OpeningHours *OpeningHoursHandler
	DatePeriods  *DatePeriodHandler
	// Health reports whether the service can reach its storage. Nil
	// answers healthy.
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	responder := newResponder(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusMethodNotAllowed, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(req.Context()); err != nil {
				responder.writeError(req.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		responder.writeJSON(req.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/resource/{id}", func(r chi.Router) {
		if h := cfg.OpeningHours; h != nil {
			r.Get("/opening_hours", h.OpeningHours)
			r.Get("/opening_hours.ics", h.OpeningHoursICS)
			r.Get("/is_open_now", h.IsOpenNow)
			r.Get("/date_periods_as_text", h.DatePeriodsAsText)
		}
		if h := cfg.DatePeriods; h != nil {
			r.Post("/copy_date_periods", h.CopyDatePeriods)
		}
	})

	return r
}
