package reports

import "github.com/go-chi/chi/v5"

// Routes mounts the report endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/dashboard", h.Dashboard)
	r.Post("/cache/invalidate", h.Invalidate)
	return r
}
