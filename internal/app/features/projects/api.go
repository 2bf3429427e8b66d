// internal/app/features/projects/api.go
package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type projectRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=4000"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type memberRequest struct {
	Email    string `json:"email" validate:"required"`
	Role     string `json:"role" validate:"max=64"`
	UserType string `json:"user_type" validate:"required"`
}

type blockRequest struct {
	Email string `json:"email" validate:"required"`
}

func actor(r *http.Request) string {
	id, _ := auth.CurrentIdentity(r)
	return id.UID
}

// List answers GET /api/projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ps, err := h.Manager.ListProjects(ctx)
	if err != nil {
		apierr.Internal(w, r, h.Log, "list projects failed", err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"projects": ps})
}

// Create answers POST /api/projects.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !apierr.Decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Manager.CreateProject(ctx, actor(r), req.Name, req.Description)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	apierr.JSON(w, http.StatusCreated, p)
}

// Rename answers PUT /api/projects/{id}.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !apierr.Decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Manager.RenameProject(ctx, actor(r), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{
		"project":          res.Project,
		"profiles_updated": res.Profiles,
		"tickets_updated":  res.Tickets,
	})
}

// Delete answers DELETE /api/projects/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Manager.DeleteProject(ctx, actor(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember answers POST /api/projects/{id}/members.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !apierr.Decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Manager.AddMember(ctx, actor(r), chi.URLParam(r, "id"), req.Email, req.Role, req.UserType)
	if err != nil {
		h.writeError(w, r, normalize.Email(req.Email), err)
		return
	}
	body := map[string]any{"member": res.Member, "profile_created": res.Created}
	if res.Created {
		body["temporary_password"] = res.Password
	}
	apierr.JSON(w, http.StatusCreated, body)
}

// EditMember answers PUT /api/projects/{id}/members/{uid}.
func (h *Handler) EditMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !apierr.Decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Manager.EditMember(ctx, actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "uid"), req.Email, req.Role, req.UserType)
	if err != nil {
		h.writeError(w, r, normalize.Email(req.Email), err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"member": res.Member, "projects_updated": res.Projects})
}

// RemoveMember answers DELETE /api/projects/{id}/members/{uid}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Manager.RemoveMember(ctx, actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"profile_deleted": res.ProfileDeleted})
}

// Block answers POST /api/blocked-emails.
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if !apierr.Decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	email := normalize.Email(req.Email)
	if err := h.Manager.BlockEmail(ctx, actor(r), email); err != nil {
		h.writeError(w, r, email, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, map[string]string{"email": email})
}

// Unblock answers DELETE /api/blocked-emails/{email}.
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	email := normalize.Email(chi.URLParam(r, "email"))
	if err := h.Manager.UnblockEmail(ctx, actor(r), email); err != nil {
		h.writeError(w, r, email, err)
		return
	}
	h.Log.Debug("email unblocked via API", zap.String("email", email))
	w.WriteHeader(http.StatusNoContent)
}
