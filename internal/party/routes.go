package party

import "github.com/go-chi/chi/v5"

// Routes mounts the party endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/ledger", h.Statement)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/opening-balance", h.SetOpeningBalance)
	r.Post("/{id}/recompute-balance", h.RecomputeBalance)
	return r
}
