package purchases

import "github.com/go-chi/chi/v5"

// Routes mounts the purchase endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/complete", h.Complete)
		r.Post("/{id}/cancel", h.Cancel)
	})
	r.Route("/returns", func(r chi.Router) {
		r.Get("/", h.ListReturns)
		r.Post("/", h.CreateReturn)
		r.Get("/{id}", h.GetReturn)
		r.Post("/{id}/complete", h.CompleteReturn)
		r.Post("/{id}/cancel", h.CancelReturn)
	})
	return r
}
