// Package ticketpolicy decides which tickets a caller may see and change.
//
// Authorization rules:
//   - Admins see every ticket
//   - Client heads and project managers see tickets of the projects their
//     profile lists
//   - Clients see tickets they created
//   - Employees see tickets assigned to them
//   - Anyone may see a ticket they created
//
// Admins and project managers assign tickets. Status changes are open to
// admins, project managers and the assigned employee.
package ticketpolicy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// Caller is the identity and role a decision is made for.
type Caller struct {
	UID   string
	Email string
	Role  models.Role
}

// Scope is the set of tickets a caller can list.
type Scope struct {
	// All is set for admins; Filter is then empty.
	All bool
	// Filter narrows the listing for everyone else.
	Filter store.TicketFilter
	// Projects are the project names the caller works on (heads and PMs).
	Projects []string
	caller   Caller
}

// ProfileGetter loads the caller's profile.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (models.UserProfile, error)
}

// ScopeFor builds the listing scope for c.
func ScopeFor(ctx context.Context, profiles ProfileGetter, c Caller) (Scope, error) {
	s := Scope{caller: c}
	switch c.Role {
	case models.RoleAdmin:
		s.All = true
	case models.RoleClientHead, models.RoleProjectManager:
		prof, err := profiles.GetByID(ctx, c.UID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return s, fmt.Errorf("load profile: %w", err)
		}
		// An empty non-nil list matches no ticket.
		s.Projects = append([]string{}, prof.Project...)
		s.Filter.Projects = s.Projects
	case models.RoleClient:
		s.Filter.CreatedBy = c.Email
	case models.RoleEmployee:
		s.Filter.AssigneeEmail = c.Email
	default:
		return s, fmt.Errorf("no ticket scope for role %q", c.Role)
	}
	return s, nil
}

// CanView reports whether t is visible in s.
func (s Scope) CanView(t models.Ticket) bool {
	if s.All || strings.EqualFold(t.CreatedBy, s.caller.Email) {
		return true
	}
	switch s.caller.Role {
	case models.RoleClientHead, models.RoleProjectManager:
		for _, p := range s.Projects {
			if p == t.Project {
				return true
			}
		}
	case models.RoleEmployee:
		return strings.EqualFold(t.AssignedTo.Email, s.caller.Email)
	}
	return false
}

// CanAssign reports whether the caller may change t's assignee.
func (s Scope) CanAssign(t models.Ticket) bool {
	switch s.caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleProjectManager:
		return s.CanView(t)
	}
	return false
}

// CanChangeStatus reports whether the caller may move t between statuses.
func (s Scope) CanChangeStatus(t models.Ticket) bool {
	if s.CanAssign(t) {
		return true
	}
	return s.caller.Role == models.RoleEmployee && strings.EqualFold(t.AssignedTo.Email, s.caller.Email)
}

// CanComment reports whether the caller may add a comment to t.
func (s Scope) CanComment(t models.Ticket) bool {
	return s.CanView(t)
}

// CanViewTeam reports whether the caller may see KPI data for employee.
// Project managers see employees who are members of one of their projects.
func CanViewTeam(caller Caller, managed []models.Project, employeeEmail string) bool {
	if caller.Role == models.RoleAdmin {
		return true
	}
	if caller.Role != models.RoleProjectManager {
		return false
	}
	for _, p := range managed {
		if p.HasEmail(employeeEmail) {
			return true
		}
	}
	return false
}
