package guard_test

import (
	"context"
	"testing"

	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// stubRoles resolves uids from a fixed table.
type stubRoles map[string]models.Role

func (s stubRoles) ResolveRole(_ context.Context, id session.Identity) (models.Role, bool) {
	r, ok := s[id.UID]
	return r, ok
}

func signedIn(uid string) session.State {
	return session.SignedIn(session.Identity{UID: uid, Email: uid + "@test.com"})
}

func TestDashboardPath(t *testing.T) {
	tests := []struct {
		role models.Role
		want string
	}{
		{models.RoleAdmin, "/admin"},
		{models.RoleClientHead, "/client-head-dashboard"},
		{models.RoleClient, "/clientdashboard"},
		{models.RoleEmployee, "/employeedashboard"},
		{models.RoleProjectManager, "/project-manager-dashboard"},
		{"", "/login"},
		{"superuser", "/login"},
	}
	for _, tt := range tests {
		if got := guard.DashboardPath(tt.role); got != tt.want {
			t.Errorf("DashboardPath(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestGuard_EveryRoleAgainstEveryGuard(t *testing.T) {
	roles := stubRoles{}
	for _, r := range models.Roles {
		roles[string(r)] = r
	}
	ctx := context.Background()

	for _, required := range models.Roles {
		g := guard.RequireRole(required)
		for _, actual := range models.Roles {
			t.Run(string(required)+"/"+string(actual), func(t *testing.T) {
				res := g.Decide(ctx, signedIn(string(actual)), roles)
				if actual == required {
					if res.Kind != guard.Granted || res.Role != actual {
						t.Fatalf("got %+v, want Granted as %s", res, actual)
					}
					return
				}
				if res.Kind != guard.Redirect || res.Target != guard.DashboardPath(actual) {
					t.Fatalf("got %+v, want redirect to %s", res, guard.DashboardPath(actual))
				}
			})
		}
	}
}

func TestGuard_Unauthenticated(t *testing.T) {
	ctx := context.Background()
	policies := []guard.Policy{
		guard.Authenticated,
		guard.RequireRole(models.RoleAdmin),
		guard.RequireRole(models.RoleClient),
	}
	for _, p := range policies {
		res := p.Decide(ctx, session.SignedOut(), stubRoles{})
		if res.Kind != guard.Redirect || res.Target != "/login" {
			t.Errorf("%v: got %+v, want redirect to /login", p, res)
		}
	}
}

func TestGuard_UnresolvedRoleRedirectsToLogin(t *testing.T) {
	res := guard.RequireRole(models.RoleAdmin).Decide(context.Background(), signedIn("ghost"), stubRoles{})
	if res.Kind != guard.Redirect || res.Target != "/login" {
		t.Fatalf("got %+v, want redirect to /login", res)
	}
}

func TestGuard_AuthenticatedConfirmsProfile(t *testing.T) {
	roles := stubRoles{"e": models.RoleEmployee}
	ctx := context.Background()

	res := guard.Authenticated.Decide(ctx, signedIn("e"), roles)
	if res.Kind != guard.Granted || res.Role != models.RoleEmployee {
		t.Fatalf("got %+v, want Granted as employee", res)
	}
	// ghost has no profile, or a disabled one: the resolver reports !ok.
	res = guard.Authenticated.Decide(ctx, signedIn("ghost"), roles)
	if res.Kind != guard.Redirect || res.Target != "/login" {
		t.Fatalf("got %+v, want redirect to /login", res)
	}
}

func TestRedirectIfAuthenticated(t *testing.T) {
	roles := stubRoles{"a": models.RoleAdmin, "e": models.RoleEmployee}
	ctx := context.Background()

	tests := []struct {
		name   string
		state  session.State
		want   guard.Kind
		target string
	}{
		{"signed out", session.SignedOut(), guard.Granted, ""},
		{"admin", signedIn("a"), guard.Redirect, "/admin"},
		{"employee", signedIn("e"), guard.Redirect, "/employeedashboard"},
		{"no profile", signedIn("ghost"), guard.Granted, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := guard.RedirectIfAuthenticated.Decide(ctx, tt.state, roles)
			if res.Kind != tt.want || res.Target != tt.target {
				t.Fatalf("got %+v, want %v %q", res, tt.want, tt.target)
			}
		})
	}
}

func TestRoleFrom(t *testing.T) {
	if _, ok := guard.RoleFrom(context.Background()); ok {
		t.Fatal("expected no role on empty context")
	}
	ctx := guard.WithRole(context.Background(), models.RoleEmployee)
	if r, ok := guard.RoleFrom(ctx); !ok || r != models.RoleEmployee {
		t.Fatalf("RoleFrom = %q, %v", r, ok)
	}
}

func TestAnyRole(t *testing.T) {
	p := guard.AnyRole{models.RoleAdmin, models.RoleProjectManager}
	roles := stubRoles{"a": models.RoleAdmin, "pm": models.RoleProjectManager, "e": models.RoleEmployee}

	tests := []struct {
		uid    string
		kind   guard.Kind
		target string
	}{
		{"a", guard.Granted, ""},
		{"pm", guard.Granted, ""},
		{"e", guard.Redirect, "/employeedashboard"},
		{"ghost", guard.Redirect, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			res := p.Decide(context.Background(), signedIn(tt.uid), roles)
			if res.Kind != tt.kind || res.Target != tt.target {
				t.Errorf("got %+v, want %v %q", res, tt.kind, tt.target)
			}
		})
	}
	if res := p.Decide(context.Background(), session.SignedOut(), roles); res.Target != "/login" {
		t.Errorf("signed out: got %+v", res)
	}
}
