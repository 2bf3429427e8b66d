// internal/app/features/team/handler.go
package team

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/policy/ticketpolicy"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/authz"
	"github.com/dalemusser/supportdesk/internal/app/system/csvutil"
	"github.com/dalemusser/supportdesk/internal/app/system/kpi"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	errNotEmployee = errors.New("not an employee")
	errNotOnTeam   = errors.New("employee is not on your projects")
)

type Handler struct {
	Stores store.Set
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(stores store.Set, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Stores: stores, ErrLog: errLog, Log: logger}
}

// Report is the KPI view of one employee.
type Report struct {
	Employee models.UserProfile
	Summary  kpi.Summary
	Rows     []kpi.Row
}

// build loads the employee's assigned tickets after checking that the
// caller manages a project the employee belongs to.
func (h *Handler) build(ctx context.Context, r *http.Request, prof models.UserProfile) (Report, error) {
	if fam, _ := prof.Role.Family(); fam != models.UserTypeEmployee {
		return Report{}, errNotEmployee
	}
	role, email, uid, _ := authz.UserCtx(r)
	caller := ticketpolicy.Caller{UID: uid, Email: email, Role: role}

	var managed []models.Project
	if role != models.RoleAdmin {
		scope, err := ticketpolicy.ScopeFor(ctx, h.Stores.Profiles, caller)
		if err != nil {
			return Report{}, err
		}
		all, err := h.Stores.Projects.List(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("list projects: %w", err)
		}
		for _, p := range all {
			for _, n := range scope.Projects {
				if p.Name == n {
					managed = append(managed, p)
					break
				}
			}
		}
	}
	if !ticketpolicy.CanViewTeam(caller, managed, prof.Email) {
		return Report{}, errNotOnTeam
	}

	ts, err := h.Stores.Tickets.List(ctx, store.TicketFilter{AssigneeEmail: prof.Email})
	if err != nil {
		return Report{}, fmt.Errorf("list assigned tickets: %w", err)
	}
	rows := kpi.Rows(ts)
	return Report{Employee: prof, Summary: kpi.Summarize(rows), Rows: rows}, nil
}

// employee resolves {id} for the page routes; it renders the error page
// itself when ok is false.
func (h *Handler) employee(ctx context.Context, w http.ResponseWriter, r *http.Request) (Report, bool) {
	id := chi.URLParam(r, "id")
	prof, err := h.Stores.Profiles.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		uierrors.RenderNotFound(w, r, "This employee does not exist.")
		return Report{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load employee failed", err, "The employee could not be loaded.", "/project-manager-dashboard")
		return Report{}, false
	}
	rep, err := h.build(ctx, r, prof)
	switch {
	case errors.Is(err, errNotEmployee):
		uierrors.RenderNotFound(w, r, "This user is not an employee.")
		return rep, false
	case errors.Is(err, errNotOnTeam):
		uierrors.RenderForbidden(w, r, "This employee is not on any of your projects.", "/project-manager-dashboard")
		return rep, false
	case err != nil:
		h.ErrLog.LogServerError(w, r, "build KPI report failed", err, "Statistics could not be loaded.", "/project-manager-dashboard")
		return rep, false
	}
	return rep, true
}

type pageData struct {
	viewdata.BaseVM
	Report
	ExportURL string
}

// ServeEmployee renders /team/employee/{id}.
func (h *Handler) ServeEmployee(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep, ok := h.employee(ctx, w, r)
	if !ok {
		return
	}
	templates.Render(w, r, "team_employee", pageData{
		BaseVM:    viewdata.NewBaseVM(r, "Employee KPIs: "+rep.Employee.Email, "/project-manager-dashboard"),
		Report:    rep,
		ExportURL: "/team/employee/" + rep.Employee.ID + "/export.csv",
	})
}

// ServeExport streams /team/employee/{id}/export.csv.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rep, ok := h.employee(ctx, w, r)
	if !ok {
		return
	}
	name := fmt.Sprintf("kpi_%s_%s.csv", normalize.LocalPart(rep.Employee.Email), time.Now().UTC().Format("20060102"))
	cw, err := csvutil.NewWriter(w, name, csvutil.KPIHeader)
	if err != nil {
		h.Log.Error("CSV write failed (header)", zap.Error(err))
		return
	}
	for _, row := range rep.Rows {
		if err := cw.Write(csvutil.KPIRecord(row)); err != nil {
			h.Log.Error("CSV write failed (row)", zap.Error(err))
			return
		}
	}
	if err := cw.Flush(); err != nil {
		h.Log.Error("CSV flush failed", zap.Error(err))
		return
	}
	h.Log.Info("KPI CSV exported", zap.String("employee", rep.Employee.Email), zap.Int("rows", cw.Rows()))
}

/*─────────────────────────────────────────────────────────────────────────────*
| JSON API                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type rowJSON struct {
	Number            int64      `json:"ticket_number"`
	Subject           string     `json:"subject"`
	Status            string     `json:"status"`
	Created           time.Time  `json:"created"`
	AssignedAt        *time.Time `json:"assigned_at"`
	ResolvedAt        *time.Time `json:"resolved_at"`
	ResponseMinutes   *float64   `json:"response_minutes"`
	ResolutionMinutes *float64   `json:"resolution_minutes"`
}

type kpiResponse struct {
	Email   string      `json:"email"`
	Summary kpi.Summary `json:"summary"`
	Tickets []rowJSON   `json:"tickets"`
}

// ServeKPI answers GET /api/kpi/{email}.
func (h *Handler) ServeKPI(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	email := normalize.Email(chi.URLParam(r, "email"))
	profs, err := h.Stores.Profiles.FindByEmail(ctx, email)
	if err != nil {
		apierr.Internal(w, r, h.Log, "find employee failed", err)
		return
	}
	var prof models.UserProfile
	for _, p := range profs {
		if fam, _ := p.Role.Family(); fam == models.UserTypeEmployee {
			prof = p
			break
		}
	}
	if prof.ID == "" {
		apierr.Write(w, http.StatusNotFound, "no employee with this email")
		return
	}

	rep, err := h.build(ctx, r, prof)
	switch {
	case errors.Is(err, errNotOnTeam):
		apierr.Write(w, http.StatusForbidden, errNotOnTeam.Error())
		return
	case err != nil:
		apierr.Internal(w, r, h.Log, "build KPI report failed", err)
		return
	}

	out := kpiResponse{Email: prof.Email, Summary: rep.Summary, Tickets: make([]rowJSON, 0, len(rep.Rows))}
	for _, row := range rep.Rows {
		out.Tickets = append(out.Tickets, rowJSON{
			Number:            row.Number,
			Subject:           row.Subject,
			Status:            row.Status,
			Created:           row.Created,
			AssignedAt:        row.AssignedAt,
			ResolvedAt:        row.ResolvedAt,
			ResponseMinutes:   row.ResponseMinutes,
			ResolutionMinutes: row.ResolutionMinutes,
		})
	}
	apierr.JSON(w, http.StatusOK, out)
}
