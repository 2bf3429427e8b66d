// internal/app/features/projects/page.go
package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
)

type pageData struct {
	viewdata.BaseVM
	Projects []models.Project
	Blocked  []models.BlockedEmail
	Roles    []models.Role
}

// ServeProjects renders /projects. Edits go through the JSON API and the
// list refreshes from /api/projects/stream.
func (h *Handler) ServeProjects(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	projects, err := h.Manager.ListProjects(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list projects failed", err, "Projects could not be loaded.", "/admin")
		return
	}
	blocked, err := h.Manager.ListBlocked(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list blocked emails failed", err, "The block list could not be loaded.", "/admin")
		return
	}
	templates.Render(w, r, "projects", pageData{
		BaseVM:   viewdata.NewBaseVM(r, "Projects", "/admin"),
		Projects: projects,
		Blocked:  blocked,
		Roles:    models.Roles,
	})
}
