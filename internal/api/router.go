package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the HTTP surface. ws and metricsHandler may be nil.
func NewRouter(h *APIHandler, ws http.HandlerFunc, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	if ws != nil {
		r.Get("/ws", ws)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/amplifiers", h.ListAmplifiers)
		r.Get("/amplifiers/{name}", h.GetAmplifier)
		r.Get("/notifications", h.ListNotifications)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)
			r.Post("/notifications", h.PublishNotification)
			r.Delete("/notifications/{id}", h.DismissNotification)
			r.Post("/ingest", h.HandleIngest)
		})
	})
	return r
}
