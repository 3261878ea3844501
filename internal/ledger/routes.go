package ledger

import "github.com/go-chi/chi/v5"

// Routes mounts the ledger endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}
