// Package routetable is the static map of page paths to their guard.
// The router mounts a page handler per entry; unmatched paths fall back to
// the client dashboard or the login page.
package routetable

import (
	"strings"

	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// Page keys.
const (
	PageLogin               = "login"
	PageForgotPassword      = "forgot_password"
	PageAdminDashboard      = "admin_dashboard"
	PageAdminTickets        = "admin_tickets"
	PageProjects            = "projects"
	PageFormConfig          = "form_config"
	PageProjectTickets      = "project_tickets"
	PageAuditLog            = "audit_log"
	PageClientHeadDashboard = "client_head_dashboard"
	PageClientHeadTickets   = "client_head_tickets"
	PageClientDashboard     = "client_dashboard"
	PageClientTickets       = "client_tickets"
	PageManagerDashboard    = "pm_dashboard"
	PageManagerTickets      = "pm_tickets"
	PageTeamEmployee        = "team_employee"
	PageEmployeeDashboard   = "employee_dashboard"
	PageEmployeeTickets     = "employee_tickets"
	PageTicketing           = "ticketing"
	PageTicketDetail        = "ticket_detail"
)

// Route binds a chi path pattern to a guard and a page key.
type Route struct {
	Path   string
	Policy guard.Policy
	Page   string
}

var (
	admin      = guard.RequireRole(models.RoleAdmin)
	clientHead = guard.RequireRole(models.RoleClientHead)
	client     = guard.RequireRole(models.RoleClient)
	manager    = guard.RequireRole(models.RoleProjectManager)
	employee   = guard.RequireRole(models.RoleEmployee)
)

var routes = []Route{
	{"/login", guard.RedirectIfAuthenticated, PageLogin},
	{"/forgot-password", guard.RedirectIfAuthenticated, PageForgotPassword},

	{"/admin", admin, PageAdminDashboard},
	{"/admin-tickets", admin, PageAdminTickets},
	{"/projects", admin, PageProjects},
	{"/editTicketform", admin, PageFormConfig},
	{"/project-tickets", admin, PageProjectTickets},
	{"/audit", admin, PageAuditLog},

	{"/client-head-dashboard", clientHead, PageClientHeadDashboard},
	{"/client-head-tickets", clientHead, PageClientHeadTickets},

	{"/clientdashboard", client, PageClientDashboard},
	{"/client-tickets", client, PageClientTickets},

	{"/project-manager-dashboard", manager, PageManagerDashboard},
	{"/project-manager-tickets", manager, PageManagerTickets},
	{"/team/employee/{id}", manager, PageTeamEmployee},

	{"/employeedashboard", employee, PageEmployeeDashboard},
	{"/employee-tickets", employee, PageEmployeeTickets},

	{"/ticketing", guard.Authenticated, PageTicketing},
	{"/tickets/{ticketId}", guard.Authenticated, PageTicketDetail},
}

// Routes returns a copy of the table.
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Resolve finds the route matching path. Pattern segments in braces match
// any single non-empty segment.
func Resolve(path string) (Route, bool) {
	segs := split(path)
	for _, rt := range routes {
		if match(split(rt.Path), segs) {
			return rt, true
		}
	}
	return Route{}, false
}

// Fallback is where an unmatched path sends the caller.
func Fallback(authenticated bool) string {
	if authenticated {
		return guard.DashboardPath(models.RoleClient)
	}
	return guard.LoginPath
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func match(pattern, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i, ps := range pattern {
		if strings.HasPrefix(ps, "{") && strings.HasSuffix(ps, "}") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if ps != segs[i] {
			return false
		}
	}
	return true
}
