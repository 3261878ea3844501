package payments

import "github.com/go-chi/chi/v5"

// Routes mounts the payment endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/customer", h.CreateCustomer)
	r.Post("/supplier", h.CreateSupplier)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}
