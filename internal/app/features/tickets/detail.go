// internal/app/features/tickets/detail.go
package tickets

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/policy/ticketpolicy"
	"github.com/dalemusser/supportdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/supportdesk/internal/app/system/ticketing"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type detailData struct {
	viewdata.BaseVM
	Ticket          models.Ticket
	Description     template.HTML
	Statuses        []string
	Assignees       []models.Member
	CanComment      bool
	CanAssign       bool
	CanChangeStatus bool
	Error           string
	Notice          string
}

// loadTicket fetches {ticketId} and checks that the caller may see it.
func (h *Handler) loadTicket(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Ticket, ticketpolicy.Caller, ticketpolicy.Scope, *http.Request, bool) {
	c, scope, r, ok := h.caller(ctx, w, r)
	if !ok {
		return models.Ticket{}, c, scope, r, false
	}
	id := chi.URLParam(r, "ticketId")
	t, err := h.Service.Get(ctx, id)
	if errors.Is(err, ticketing.ErrTicketNotFound) {
		uierrors.RenderNotFound(w, r, "This ticket does not exist.")
		return t, c, scope, r, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load ticket failed", err, "The ticket could not be loaded.", "/")
		return t, c, scope, r, false
	}
	if !scope.CanView(t) {
		h.Log.Info("ticket access denied",
			zap.String("ticket_id", id),
			zap.String("uid", c.UID),
			zap.String("role", string(c.Role)))
		uierrors.RenderForbidden(w, r, "You don't have access to this ticket.", "")
		return t, c, scope, r, false
	}
	return t, c, scope, r, true
}

// ServeTicket renders /tickets/{ticketId}.
func (h *Handler) ServeTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, _, scope, r, ok := h.loadTicket(ctx, w, r)
	if !ok {
		return
	}
	data := detailData{
		BaseVM:          viewdata.NewBaseVM(r, "Ticket #"+itoa(t.Number), "/"),
		Ticket:          t,
		Description:     htmlsanitize.SafeHTML(t.Description),
		Statuses:        ticketing.Statuses,
		CanComment:      scope.CanComment(t),
		CanAssign:       scope.CanAssign(t),
		CanChangeStatus: scope.CanChangeStatus(t),
		Error:           r.URL.Query().Get("error"),
		Notice:          r.URL.Query().Get("notice"),
	}
	if data.CanAssign {
		assignees, err := h.Service.Assignees(ctx, t.Project)
		if err != nil {
			h.Log.Warn("load assignees failed", zap.String("project", t.Project), zap.Error(err))
		}
		data.Assignees = assignees
	}
	templates.Render(w, r, "ticket_detail", data)
}

// HandleComment adds a comment.
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, c ticketpolicy.Caller, scope ticketpolicy.Scope, t models.Ticket) (string, error) {
		if !scope.CanComment(t) {
			return "", errNotAllowed
		}
		_, err := h.Service.Comment(ctx, c, t.ID, r.PostForm.Get("message"))
		return "Comment added.", err
	})
}

// HandleStatus changes the status; resolving records the note as the
// resolution.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, c ticketpolicy.Caller, scope ticketpolicy.Scope, t models.Ticket) (string, error) {
		if !scope.CanChangeStatus(t) {
			return "", errNotAllowed
		}
		_, err := h.Service.SetStatus(ctx, c, t.ID, r.PostForm.Get("status"), r.PostForm.Get("note"))
		return "Status updated.", err
	})
}

// HandleAssign assigns the ticket to an employee.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, c ticketpolicy.Caller, scope ticketpolicy.Scope, t models.Ticket) (string, error) {
		if !scope.CanAssign(t) {
			return "", errNotAllowed
		}
		_, err := h.Service.Assign(ctx, c, t.ID, r.PostForm.Get("assignee"))
		return "Ticket assigned.", err
	})
}

var errNotAllowed = errors.New("you are not allowed to make this change")

// userErrors are shown back on the ticket page.
var userErrors = []error{
	errNotAllowed,
	ticketing.ErrEmptyComment,
	ticketing.ErrInvalidStatus,
	ticketing.ErrStatusUnchanged,
	ticketing.ErrInvalidAssignee,
	ticketing.ErrAlreadyAssigned,
}

// mutate runs fn for a visible ticket and redirects back to it with a
// notice or an error message.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, ticketpolicy.Caller, ticketpolicy.Scope, models.Ticket) (string, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse ticket form failed", err, "The form could not be read.", "/")
		return
	}
	t, c, scope, r, ok := h.loadTicket(ctx, w, r)
	if !ok {
		return
	}
	back := "/tickets/" + t.ID

	notice, err := fn(ctx, c, scope, t)
	if err != nil {
		for _, ue := range userErrors {
			if errors.Is(err, ue) {
				http.Redirect(w, r, back+"?error="+url.QueryEscape(ue.Error()), http.StatusSeeOther)
				return
			}
		}
		h.ErrLog.LogServerError(w, r, "update ticket failed", err, "The ticket could not be updated.", back)
		return
	}
	http.Redirect(w, r, back+"?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}
