// backend/handlers/router.go
package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the admin API routes.
func NewRouter(h *AdminHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", h.HealthHandler)
	r.Get("/api/runs", h.ListRunsHandler)
	r.Get("/api/ledger", h.LedgerHandler)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/run", h.RunHandler)
		r.Post("/run-if-needed", h.RunIfNeededHandler)
		r.Post("/preview", h.PreviewHandler)
	})
	return r
}
