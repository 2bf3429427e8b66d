// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/policy/ticketpolicy"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/authz"
	"github.com/dalemusser/supportdesk/internal/app/system/kpi"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// recentLimit is how many tickets a dashboard lists.
const recentLimit = 5

type Handler struct {
	Stores store.Set
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(stores store.Set, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Stores: stores, ErrLog: errLog, Log: logger}
}

// StatusCounts tallies tickets by status.
type StatusCounts struct {
	Total      int
	Open       int
	InProgress int
	Resolved   int
	Closed     int
}

func countStatuses(ts []models.Ticket) StatusCounts {
	var c StatusCounts
	for _, t := range ts {
		c.Total++
		switch {
		case strings.EqualFold(t.Status, models.TicketOpen):
			c.Open++
		case strings.EqualFold(t.Status, models.TicketInProgress):
			c.InProgress++
		case strings.EqualFold(t.Status, models.TicketResolved):
			c.Resolved++
		case strings.EqualFold(t.Status, models.TicketClosed):
			c.Closed++
		}
	}
	return c
}

func recent(ts []models.Ticket) []models.Ticket {
	if len(ts) > recentLimit {
		return ts[:recentLimit]
	}
	return ts
}

// ticketData is shared by every dashboard.
type ticketData struct {
	viewdata.BaseVM
	Counts     StatusCounts
	Recent     []models.Ticket
	TicketsURL string
}

// scopedTickets loads the tickets visible to the caller.
func (h *Handler) scopedTickets(ctx context.Context, r *http.Request) ([]models.Ticket, ticketpolicy.Scope, error) {
	role, email, uid, _ := authz.UserCtx(r)
	scope, err := ticketpolicy.ScopeFor(ctx, h.Stores.Profiles, ticketpolicy.Caller{UID: uid, Email: email, Role: role})
	if err != nil {
		return nil, scope, err
	}
	ts, err := h.Stores.Tickets.List(ctx, scope.Filter)
	return ts, scope, err
}

func (h *Handler) base(ctx context.Context, w http.ResponseWriter, r *http.Request, title, ticketsURL string) (ticketData, []models.Ticket, ticketpolicy.Scope, bool) {
	ts, scope, err := h.scopedTickets(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load dashboard tickets failed", err, "Your tickets could not be loaded.", "/")
		return ticketData{}, nil, scope, false
	}
	return ticketData{
		BaseVM:     viewdata.NewBaseVM(r, title, "/"),
		Counts:     countStatuses(ts),
		Recent:     recent(ts),
		TicketsURL: ticketsURL,
	}, ts, scope, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type adminData struct {
	ticketData
	ProjectsCount int
	BlockedCount  int
	Users         map[string]int
	Unassigned    int
}

// ServeAdmin renders /admin.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	td, ts, _, ok := h.base(ctx, w, r, "Admin Dashboard", "/admin-tickets")
	if !ok {
		return
	}
	projects, err := h.Stores.Projects.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list projects failed", err, "Projects could not be loaded.", "/")
		return
	}
	profiles, err := h.Stores.Profiles.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list profiles failed", err, "Users could not be loaded.", "/")
		return
	}
	blocked, err := h.Stores.Blocked.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list blocked emails failed", err, "The block list could not be loaded.", "/")
		return
	}

	data := adminData{
		ticketData:    td,
		ProjectsCount: len(projects),
		BlockedCount:  len(blocked),
		Users:         make(map[string]int),
	}
	for _, p := range profiles {
		data.Users[string(p.Role)]++
	}
	for _, t := range ts {
		if t.AssignedTo.Email == "" {
			data.Unassigned++
		}
	}

	h.Log.Debug("admin dashboard served", zap.String("user", td.UserEmail))
	templates.Render(w, r, "admin_dashboard", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Client head and client                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type clientData struct {
	ticketData
	Projects []string
}

// ServeClientHead renders /client-head-dashboard.
func (h *Handler) ServeClientHead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	td, _, scope, ok := h.base(ctx, w, r, "Client Head Dashboard", "/client-head-tickets")
	if !ok {
		return
	}
	templates.Render(w, r, "client_head_dashboard", clientData{ticketData: td, Projects: scope.Projects})
}

// ServeClient renders /clientdashboard.
func (h *Handler) ServeClient(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	td, _, _, ok := h.base(ctx, w, r, "Client Dashboard", "/client-tickets")
	if !ok {
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	var projects []string
	if prof, err := h.Stores.Profiles.GetByID(ctx, uid); err == nil {
		projects = prof.Project
	}
	templates.Render(w, r, "client_dashboard", clientData{ticketData: td, Projects: projects})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Project manager and employee                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// TeamMember is one employee row on the project manager dashboard.
type TeamMember struct {
	UID     string
	Email   string
	Role    models.Role
	Summary kpi.Summary
}

type managerData struct {
	ticketData
	Projects []string
	Team     []TeamMember
}

// ServeManager renders /project-manager-dashboard with a KPI summary for
// every employee on the manager's projects.
func (h *Handler) ServeManager(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	td, _, scope, ok := h.base(ctx, w, r, "Project Manager Dashboard", "/project-manager-tickets")
	if !ok {
		return
	}
	projects, err := h.Stores.Projects.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list projects failed", err, "Projects could not be loaded.", "/")
		return
	}

	mine := make(map[string]bool, len(scope.Projects))
	for _, n := range scope.Projects {
		mine[n] = true
	}
	seen := make(map[string]bool)
	var team []TeamMember
	for _, p := range projects {
		if !mine[p.Name] {
			continue
		}
		for _, m := range p.Members {
			if m.UserType != models.UserTypeEmployee || seen[m.Email] || strings.EqualFold(m.Email, td.UserEmail) {
				continue
			}
			seen[m.Email] = true
			assigned, err := h.Stores.Tickets.List(ctx, store.TicketFilter{AssigneeEmail: m.Email})
			if err != nil {
				h.ErrLog.LogServerError(w, r, "list team tickets failed", err, "Team statistics could not be loaded.", "/")
				return
			}
			team = append(team, TeamMember{UID: m.UID, Email: m.Email, Role: m.Role, Summary: kpi.Compute(assigned)})
		}
	}

	templates.Render(w, r, "pm_dashboard", managerData{ticketData: td, Projects: scope.Projects, Team: team})
}

type employeeData struct {
	ticketData
	Summary kpi.Summary
}

// ServeEmployee renders /employeedashboard with the caller's own KPIs.
func (h *Handler) ServeEmployee(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	td, ts, _, ok := h.base(ctx, w, r, "Employee Dashboard", "/employee-tickets")
	if !ok {
		return
	}
	templates.Render(w, r, "employee_dashboard", employeeData{ticketData: td, Summary: kpi.Compute(ts)})
}
