// internal/app/features/formconfig/routes.go
package formconfig

import "github.com/go-chi/chi/v5"

// PageRoutes serves /editTicketform.
func PageRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeEditor)
	return r
}

// APIRoutes serves /api/form-config.
func APIRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Put)
	return r
}
