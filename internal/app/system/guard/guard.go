// Package guard decides whether a caller may see a route.
//
// A guard is a three-state machine: Loading, then Granted or Redirect. The
// same decision is available synchronously (Decide, used by the HTTP
// middleware) and as a live subscription over a session.Source (Run, used by
// the session stream).
package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// Kind tags a Result.
type Kind int

const (
	Loading Kind = iota
	Granted
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Granted:
		return "granted"
	case Redirect:
		return "redirect"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Result is the outcome of a guard. Target is set for Redirect; Role is set
// when a role was resolved.
type Result struct {
	Kind   Kind        `json:"kind"`
	Target string      `json:"target,omitempty"`
	Role   models.Role `json:"role,omitempty"`
}

// LoginPath is where unauthenticated callers are sent.
const LoginPath = "/login"

func loading() Result                 { return Result{Kind: Loading} }
func granted(role models.Role) Result { return Result{Kind: Granted, Role: role} }
func redirect(target string, role models.Role) Result {
	return Result{Kind: Redirect, Target: target, Role: role}
}

var dashboards = map[models.Role]string{
	models.RoleAdmin:          "/admin",
	models.RoleClientHead:     "/client-head-dashboard",
	models.RoleClient:         "/clientdashboard",
	models.RoleEmployee:       "/employeedashboard",
	models.RoleProjectManager: "/project-manager-dashboard",
}

// DashboardPath returns the home path of role, or /login for anything else.
func DashboardPath(role models.Role) string {
	if p, ok := dashboards[role]; ok {
		return p
	}
	return LoginPath
}

// RoleResolver maps an identity to its role. ok is false when the identity
// must be treated as unauthenticated.
type RoleResolver interface {
	ResolveRole(ctx context.Context, id session.Identity) (role models.Role, ok bool)
}

// Policy turns a session state into a Result.
type Policy interface {
	Decide(ctx context.Context, st session.State, roles RoleResolver) Result
}

// Guard grants authenticated callers, and when Required is set only callers
// whose resolved role equals it. Others are redirected to their own
// dashboard, or to /login.
type Guard struct {
	Required *models.Role
}

// RequireRole returns a Guard for role.
func RequireRole(role models.Role) Guard {
	return Guard{Required: &role}
}

// Authenticated grants any signed-in caller whose profile still resolves to
// a role. A missing or disabled profile is sent to /login.
var Authenticated = Guard{}

// Decide implements Policy.
func (g Guard) Decide(ctx context.Context, st session.State, roles RoleResolver) Result {
	if !st.Authenticated || st.Identity == nil {
		return redirect(LoginPath, "")
	}
	role, ok := roles.ResolveRole(ctx, *st.Identity)
	if !ok {
		return redirect(LoginPath, "")
	}
	if g.Required == nil || role == *g.Required {
		return granted(role)
	}
	return redirect(DashboardPath(role), role)
}

func (g Guard) String() string {
	if g.Required == nil {
		return "authenticated"
	}
	return "role:" + string(*g.Required)
}

// AnyRole grants callers whose resolved role is one of its members and
// redirects everyone else like Guard does.
type AnyRole []models.Role

// Decide implements Policy.
func (a AnyRole) Decide(ctx context.Context, st session.State, roles RoleResolver) Result {
	if !st.Authenticated || st.Identity == nil {
		return redirect(LoginPath, "")
	}
	role, ok := roles.ResolveRole(ctx, *st.Identity)
	if !ok {
		return redirect(LoginPath, "")
	}
	for _, r := range a {
		if r == role {
			return granted(role)
		}
	}
	return redirect(DashboardPath(role), role)
}

func (a AnyRole) String() string {
	parts := make([]string, len(a))
	for i, r := range a {
		parts[i] = string(r)
	}
	return "roles:" + strings.Join(parts, ",")
}

type redirectIfAuthenticated struct{}

// RedirectIfAuthenticated sends callers with a resolvable role to their
// dashboard and grants everyone else. It guards the login pages.
var RedirectIfAuthenticated Policy = redirectIfAuthenticated{}

func (redirectIfAuthenticated) Decide(ctx context.Context, st session.State, roles RoleResolver) Result {
	if !st.Authenticated || st.Identity == nil {
		return granted("")
	}
	if role, ok := roles.ResolveRole(ctx, *st.Identity); ok {
		return redirect(DashboardPath(role), role)
	}
	return granted("")
}

func (redirectIfAuthenticated) String() string { return "redirect-if-authenticated" }

type roleKey struct{}

// WithRole stores the resolved role on ctx.
func WithRole(ctx context.Context, role models.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFrom returns the role stored by the guard middleware.
func RoleFrom(ctx context.Context) (models.Role, bool) {
	r, ok := ctx.Value(roleKey{}).(models.Role)
	return r, ok && r != ""
}
