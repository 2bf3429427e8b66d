// internal/app/features/tickets/routes.go
package tickets

import "github.com/go-chi/chi/v5"

// ListRoutes serves a role's ticket list and its CSV export at the mount
// point.
func ListRoutes(h *Handler, page ListPage) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList(page))
	r.Get("/export.csv", h.ServeExport(page))
	return r
}

// NewRoutes serves the ticket form (/ticketing).
func NewRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeNew)
	r.Post("/", h.HandleCreate)
	return r
}

// DetailRoutes serves one ticket; mount it at /tickets/{ticketId}.
func DetailRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeTicket)
	r.Post("/comments", h.HandleComment)
	r.Post("/status", h.HandleStatus)
	r.Post("/assign", h.HandleAssign)
	return r
}
