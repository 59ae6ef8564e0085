package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all vqe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/vqe", func(r chi.Router) {
		r.Post("/runs", h.HandleStartRun)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{id}", h.HandleGetRun)
	})
}
