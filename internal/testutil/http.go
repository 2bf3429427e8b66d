package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestUser represents an authenticated caller in handler tests.
type TestUser struct {
	UID   string
	Email string
	Role  models.Role
}

// Identity returns the session identity of u.
func (u TestUser) Identity() session.Identity {
	return session.Identity{UID: u.UID, Email: u.Email}
}

// AdminUser returns a TestUser with the admin role.
func AdminUser() TestUser {
	return TestUser{UID: "uid-admin", Email: "admin@test.com", Role: models.RoleAdmin}
}

// ClientUser returns a TestUser with the client role.
func ClientUser() TestUser {
	return TestUser{UID: "uid-client", Email: "client@test.com", Role: models.RoleClient}
}

// ClientHeadUser returns a TestUser with the client_head role.
func ClientHeadUser() TestUser {
	return TestUser{UID: "uid-head", Email: "head@test.com", Role: models.RoleClientHead}
}

// EmployeeUser returns a TestUser with the employee role.
func EmployeeUser() TestUser {
	return TestUser{UID: "uid-employee", Email: "employee@test.com", Role: models.RoleEmployee}
}

// ManagerUser returns a TestUser with the project_manager role.
func ManagerUser() TestUser {
	return TestUser{UID: "uid-pm", Email: "pm@test.com", Role: models.RoleProjectManager}
}

// WithUser puts the identity and the resolved role of u on the request,
// bypassing the session and guard middleware.
func WithUser(r *http.Request, u TestUser) *http.Request {
	r = auth.WithIdentity(r, u.Identity())
	return r.WithContext(guard.WithRole(r.Context(), u.Role))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request with a JSON body.
func NewJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if location := r.Header().Get("Location"); location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
