// internal/app/features/dashboard/routes.go
package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes serves one role dashboard at the mount point. The route table
// guards each mount with the matching role.
func Routes(serve http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Get("/", serve)
	return r
}
