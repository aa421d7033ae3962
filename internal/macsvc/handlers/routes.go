package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

const requestTimeout = 60 * time.Second

func (h *Handler) SetRoutes(r chi.Router) {
	// public routes here
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", h.HealthHandler)
		r.Get("/status", h.Status)
		r.Post("/unlock", h.Unlock)
		r.Post("/lock", h.Lock)
	})

	// Secure routes
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireUnlocked(h.locked))

		// long lived, so outside the request timeout
		r.Get("/records/feed", h.Feed)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/records", h.ListRecords)
			r.Post("/records", h.CreateRecord)
			r.Get("/records/{id}", h.GetRecord)
			r.Patch("/records/{id}", h.UpdateRecord)
			r.Delete("/records/{id}", h.DeleteRecord)
			r.Get("/stats", h.Stats)
		})
	})
}
