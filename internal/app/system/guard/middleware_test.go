package guard_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.uber.org/zap"
)

// fakeSessions returns a fixed state and records Clear calls.
type fakeSessions struct {
	state   session.State
	cleared bool
}

func (f *fakeSessions) State(*http.Request) session.State { return f.state }
func (f *fakeSessions) Clear(http.ResponseWriter, *http.Request) {
	f.cleared = true
}

func okHandler(t *testing.T, wantRole models.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantRole != "" {
			if got, _ := guard.RoleFrom(r.Context()); got != wantRole {
				t.Errorf("role on context = %q, want %q", got, wantRole)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Granted(t *testing.T) {
	sess := &fakeSessions{state: signedIn("a")}
	mw := guard.Middleware(guard.RequireRole(models.RoleAdmin), sess, stubRoles{"a": models.RoleAdmin}, zap.NewNop())

	rec := httptest.NewRecorder()
	mw(okHandler(t, models.RoleAdmin)).ServeHTTP(rec, httptest.NewRequest("GET", "/admin", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_WrongRoleHTML(t *testing.T) {
	sess := &fakeSessions{state: signedIn("c")}
	mw := guard.Middleware(guard.RequireRole(models.RoleAdmin), sess, stubRoles{"c": models.RoleClient}, zap.NewNop())

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	mw(okHandler(t, "")).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/clientdashboard" {
		t.Fatalf("Location = %q, want /clientdashboard", loc)
	}
	if sess.cleared {
		t.Error("session must not be cleared for a role mismatch")
	}
}

func TestMiddleware_UnauthenticatedAPI(t *testing.T) {
	sess := &fakeSessions{state: session.SignedOut()}
	mw := guard.Middleware(guard.Authenticated, sess, stubRoles{}, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/projects", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	mw(okHandler(t, "")).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body["redirect"], "/login") {
		t.Errorf("redirect = %q, want /login...", body["redirect"])
	}
}

func TestMiddleware_HTMX(t *testing.T) {
	sess := &fakeSessions{state: session.SignedOut()}
	mw := guard.Middleware(guard.RequireRole(models.RoleEmployee), sess, stubRoles{}, zap.NewNop())

	req := httptest.NewRequest("GET", "/employee-tickets", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	mw(okHandler(t, "")).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login?return=") {
		t.Fatalf("HX-Redirect = %q", hx)
	}
}

func TestMiddleware_LostRoleClearsSession(t *testing.T) {
	sess := &fakeSessions{state: signedIn("ghost")}
	mw := guard.Middleware(guard.RequireRole(models.RoleAdmin), sess, stubRoles{}, zap.NewNop())

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	mw(okHandler(t, "")).ServeHTTP(rec, req)

	if !sess.cleared {
		t.Fatal("expected session to be cleared")
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("Location = %q, want /login", loc)
	}
}

func TestMiddleware_LoginPageRedirectsSignedInUser(t *testing.T) {
	sess := &fakeSessions{state: signedIn("pm")}
	mw := guard.Middleware(guard.RedirectIfAuthenticated, sess, stubRoles{"pm": models.RoleProjectManager}, zap.NewNop())

	req := httptest.NewRequest("GET", "/login", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	mw(okHandler(t, "")).ServeHTTP(rec, req)

	if loc := rec.Header().Get("Location"); loc != "/project-manager-dashboard" {
		t.Fatalf("Location = %q, want /project-manager-dashboard", loc)
	}
}
