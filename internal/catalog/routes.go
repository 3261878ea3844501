package catalog

import "github.com/go-chi/chi/v5"

// Routes mounts the catalog endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
	})
	r.Route("/units", func(r chi.Router) {
		r.Get("/", h.ListUnits)
		r.Post("/", h.CreateUnit)
	})
	return r
}
