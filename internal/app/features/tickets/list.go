// internal/app/features/tickets/list.go
package tickets

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/policy/ticketpolicy"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/csvutil"
	"github.com/dalemusser/supportdesk/internal/app/system/kpi"
	"github.com/dalemusser/supportdesk/internal/app/system/ticketing"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ExportKind selects the CSV layout of a list page.
type ExportKind int

const (
	ExportTickets ExportKind = iota // one row per ticket
	ExportKPI                       // response and resolution minutes per ticket
)

// ListPage configures one role's ticket list.
type ListPage struct {
	Title          string
	Path           string // mount path, used for links
	Export         ExportKind
	GroupByProject bool
}

// The list pages of the route table.
var (
	AdminTickets      = ListPage{Title: "All Tickets", Path: "/admin-tickets"}
	ProjectTickets    = ListPage{Title: "Tickets by Project", Path: "/project-tickets", GroupByProject: true}
	ClientHeadTickets = ListPage{Title: "Project Tickets", Path: "/client-head-tickets", GroupByProject: true}
	ClientTickets     = ListPage{Title: "My Tickets", Path: "/client-tickets"}
	ManagerTickets    = ListPage{Title: "Project Tickets", Path: "/project-manager-tickets", GroupByProject: true}
	EmployeeTickets   = ListPage{Title: "My Assigned Tickets", Path: "/employee-tickets", Export: ExportKPI}
)

type projectGroup struct {
	Project string
	Tickets []models.Ticket
}

type listData struct {
	viewdata.BaseVM
	Page          ListPage
	Tickets       []models.Ticket
	Groups        []projectGroup
	Statuses      []string
	Projects      []string
	StatusFilter  string
	ProjectFilter string
	ExportURL     string
}

// narrow applies the optional ?status= and ?project= filters inside scope.
func narrow(scope ticketpolicy.Scope, r *http.Request) store.TicketFilter {
	f := scope.Filter
	if st, ok := ticketing.ParseStatus(r.URL.Query().Get("status")); ok {
		f.Status = st
	}
	if p := strings.TrimSpace(r.URL.Query().Get("project")); p != "" {
		if f.Projects != nil && !containsString(f.Projects, p) {
			f.Projects = []string{}
		} else {
			f.Projects = []string{p}
		}
	}
	return f
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) ([]models.Ticket, ticketpolicy.Scope, *http.Request, bool) {
	_, scope, r, ok := h.caller(ctx, w, r)
	if !ok {
		return nil, scope, r, false
	}
	ts, err := h.Stores.Tickets.List(ctx, narrow(scope, r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list tickets failed", err, "Tickets could not be loaded.", "/")
		return nil, scope, r, false
	}
	return ts, scope, r, true
}

// ServeList renders a role's ticket list.
func (h *Handler) ServeList(page ListPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		defer cancel()

		ts, scope, r, ok := h.load(ctx, w, r)
		if !ok {
			return
		}

		data := listData{
			BaseVM:        viewdata.NewBaseVM(r, page.Title, "/"),
			Page:          page,
			Tickets:       ts,
			Statuses:      ticketing.Statuses,
			Projects:      scope.Projects,
			StatusFilter:  r.URL.Query().Get("status"),
			ProjectFilter: r.URL.Query().Get("project"),
			ExportURL:     page.Path + "/export.csv",
		}
		if q := r.URL.RawQuery; q != "" {
			data.ExportURL += "?" + q
		}
		if page.GroupByProject {
			data.Groups = groupByProject(ts)
		}
		if scope.All {
			if ps, err := h.Stores.Projects.List(ctx); err == nil {
				for _, p := range ps {
					data.Projects = append(data.Projects, p.Name)
				}
			}
		}
		templates.Render(w, r, "ticket_list", data)
	}
}

// ServeExport streams the list as CSV.
func (h *Handler) ServeExport(page ListPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
		defer cancel()

		ts, _, r, ok := h.load(ctx, w, r)
		if !ok {
			return
		}
		stamp := time.Now().UTC().Format("20060102")
		name := strings.TrimPrefix(page.Path, "/")

		var err error
		switch page.Export {
		case ExportKPI:
			err = writeKPI(w, fmt.Sprintf("%s_kpi_%s.csv", name, stamp), kpi.Rows(ts))
		default:
			err = writeTickets(w, fmt.Sprintf("%s_%s.csv", name, stamp), ts)
		}
		if err != nil {
			h.Log.Error("CSV export failed", zap.String("page", page.Path), zap.Error(err))
			return
		}
		h.Log.Info("tickets CSV exported", zap.String("page", page.Path), zap.Int("rows", len(ts)))
	}
}

func writeTickets(w http.ResponseWriter, filename string, ts []models.Ticket) error {
	cw, err := csvutil.NewWriter(w, filename, csvutil.TicketHeader)
	if err != nil {
		return err
	}
	for _, t := range ts {
		if err := cw.Write(csvutil.TicketRecord(t)); err != nil {
			return err
		}
	}
	return cw.Flush()
}

func writeKPI(w http.ResponseWriter, filename string, rows []kpi.Row) error {
	cw, err := csvutil.NewWriter(w, filename, csvutil.KPIHeader)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(csvutil.KPIRecord(row)); err != nil {
			return err
		}
	}
	return cw.Flush()
}

func groupByProject(ts []models.Ticket) []projectGroup {
	idx := map[string]int{}
	var out []projectGroup
	for _, t := range ts {
		i, ok := idx[t.Project]
		if !ok {
			i = len(out)
			idx[t.Project] = i
			out = append(out, projectGroup{Project: t.Project})
		}
		out[i].Tickets = append(out[i].Tickets, t)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Project < out[b].Project })
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
