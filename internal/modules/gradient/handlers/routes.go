package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all gradient routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/gradient", func(r chi.Router) {
		r.Post("/parameter-shift", h.HandleParameterShift)
		r.Post("/finite-difference", h.HandleFiniteDifference)
		r.Post("/recipes", h.HandleRecipes)
	})
}
