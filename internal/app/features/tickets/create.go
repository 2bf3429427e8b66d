// internal/app/features/tickets/create.go
package tickets

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/policy/ticketpolicy"
	"github.com/dalemusser/supportdesk/internal/app/system/ticketing"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
)

type newData struct {
	viewdata.BaseVM
	Projects []string
	Form     models.FormConfig
	Input    ticketing.NewTicket
	Error    string
}

// ServeNew renders the ticket form at /ticketing.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, _, r, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	h.renderNew(ctx, w, r, c, ticketing.NewTicket{Project: r.URL.Query().Get("project")}, "")
}

func (h *Handler) renderNew(ctx context.Context, w http.ResponseWriter, r *http.Request, c ticketpolicy.Caller, in ticketing.NewTicket, msg string) {
	projects, err := h.Service.ProjectsFor(ctx, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load projects for ticket form failed", err, "The ticket form could not be loaded.", "/")
		return
	}
	form, err := h.Service.FormConfig(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load form config failed", err, "The ticket form could not be loaded.", "/")
		return
	}
	data := newData{
		BaseVM:   viewdata.NewBaseVM(r, "New Ticket", "/"),
		Projects: projects,
		Form:     form,
		Input:    in,
		Error:    msg,
	}
	if msg != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	templates.Render(w, r, "ticket_new", data)
}

// HandleCreate files the ticket and redirects to it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, _, r, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse ticket form failed", err, "The form could not be read.", "/ticketing")
		return
	}
	in := ticketing.NewTicket{
		Subject:     r.PostForm.Get("subject"),
		Description: r.PostForm.Get("description"),
		Project:     r.PostForm.Get("project"),
		Module:      r.PostForm.Get("module"),
		Category:    r.PostForm.Get("category"),
		SubCategory: r.PostForm.Get("sub_category"),
	}

	t, err := h.Service.Create(ctx, c, in)
	switch {
	case errors.Is(err, ticketing.ErrSubjectRequired),
		errors.Is(err, ticketing.ErrProjectRequired),
		errors.Is(err, ticketing.ErrUnknownProject),
		errors.Is(err, ticketing.ErrInvalidOption):
		h.renderNew(ctx, w, r, c, in, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "create ticket failed", err, "The ticket could not be saved.", "/ticketing")
		return
	}
	http.Redirect(w, r, "/tickets/"+t.ID, http.StatusSeeOther)
}
