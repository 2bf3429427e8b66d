// internal/app/features/team/routes.go
package team

import "github.com/go-chi/chi/v5"

// Routes serves one employee's KPI page; mount it at /team/employee/{id}.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeEmployee)
	r.Get("/export.csv", h.ServeExport)
	return r
}

// APIRoutes serves /api/kpi.
func APIRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{email}", h.ServeKPI)
	return r
}
