// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// PageRoutes serves /projects.
func PageRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeProjects)
	return r
}

// APIRoutes serves /api/projects.
func APIRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/stream", h.Stream)
	r.Route("/{id}", func(r chi.Router) {
		r.Put("/", h.Rename)
		r.Delete("/", h.Delete)
		r.Post("/members", h.AddMember)
		r.Put("/members/{uid}", h.EditMember)
		r.Delete("/members/{uid}", h.RemoveMember)
	})
	return r
}

// BlockedRoutes serves /api/blocked-emails.
func BlockedRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Block)
	r.Delete("/{email}", h.Unblock)
	return r
}
