package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the probes on mux and the session-scoped API under
// /api behind withSession.
func RegisterRoutes(mux chi.Router, h *Handlers, withSession func(http.Handler) http.Handler) {
	mux.Get("/healthz", h.Health)
	mux.Get("/version", h.Version)

	mux.Route("/api", func(r chi.Router) {
		r.Use(withSession)
		r.Get("/models", h.ListModels)
		r.Put("/credential", h.SetCredential)
		r.Get("/history", h.GetHistory)

		r.Post("/chat", h.Chat)
		r.Post("/exam", h.Exam)
		r.Post("/simplify", h.Simplify)
		r.Post("/qa", h.Answer)
		r.Post("/lesson", h.Lesson)
	})
}
