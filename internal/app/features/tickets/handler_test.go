package tickets_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/features/tickets"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/ticketing"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/supportdesk/internal/testutil"
	"go.uber.org/zap"
)

type stubRoles map[string]models.Role

func (s stubRoles) ResolveRole(_ context.Context, id session.Identity) (models.Role, bool) {
	r, ok := s[id.UID]
	return r, ok
}

type env struct {
	h   *tickets.Handler
	set store.Set
	fx  *testutil.Fixtures
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	set := testutil.NewMemoryBackend(t)
	fx := testutil.NewFixtures(t, set)

	fx.CreateProject(ctx, "Alpha")
	fx.CreateProject(ctx, "Beta")
	for _, u := range []testutil.TestUser{testutil.AdminUser(), testutil.ClientUser(), testutil.EmployeeUser(), testutil.ManagerUser(), testutil.ClientHeadUser()} {
		p := fx.CreateProfile(ctx, u.UID, u.Email, u.Role)
		if u.Role != models.RoleAdmin {
			p.Project = []string{"Alpha"}
			if err := set.Profiles.Upsert(ctx, p); err != nil {
				t.Fatal(err)
			}
		}
	}

	svc := ticketing.New(ticketing.Deps{
		Tickets:  set.Tickets,
		Profiles: set.Profiles,
		Projects: set.Projects,
		Forms:    set.FormConfigs,
		Logger:   logger,
	})
	roles := stubRoles{}
	for _, u := range []testutil.TestUser{testutil.AdminUser(), testutil.ClientUser(), testutil.EmployeeUser(), testutil.ManagerUser(), testutil.ClientHeadUser()} {
		roles[u.UID] = u.Role
	}
	h := tickets.NewHandler(set, svc, roles, uierrors.NewErrorLogger(logger), logger)
	return &env{h: h, set: set, fx: fx}
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Only the identity is set: /ticketing is guarded without a role lookup.
func asIdentity(r *http.Request, u testutil.TestUser) *http.Request {
	return auth.WithIdentity(r, u.Identity())
}

func TestHandleCreate_RedirectsToTicket(t *testing.T) {
	e := newEnv(t)
	client := testutil.ClientUser()

	req := asIdentity(postForm("/ticketing", url.Values{
		"subject":     {"Printer on fire"},
		"project":     {"Alpha"},
		"description": {"<p>Smoke</p>"},
	}), client)
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/tickets/") {
		t.Fatalf("Location = %q", loc)
	}
	tk, err := e.set.Tickets.GetByID(context.Background(), strings.TrimPrefix(loc, "/tickets/"))
	if err != nil {
		t.Fatalf("ticket not stored: %v", err)
	}
	if tk.CreatedBy != client.Email || tk.Project != "Alpha" || tk.Status != models.TicketOpen {
		t.Errorf("ticket = %+v", tk)
	}
}

func TestHandleCreate_Unauthenticated(t *testing.T) {
	e := newEnv(t)
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, postForm("/ticketing", url.Values{"subject": {"x"}}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleCreate_UnknownRoleRedirectsToLogin(t *testing.T) {
	e := newEnv(t)
	ghost := testutil.TestUser{UID: "uid-ghost", Email: "ghost@test.com"}
	req := asIdentity(postForm("/ticketing", url.Values{"subject": {"x"}, "project": {"Alpha"}}), ghost)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/login") {
		t.Errorf("got %d %q, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestTicketMutations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := testutil.ClientUser()
	tk := e.fx.CreateTicket(ctx, "Alpha", "Broken", client.Email, "")

	tests := []struct {
		name      string
		user      testutil.TestUser
		handler   func(*tickets.Handler) http.HandlerFunc
		form      url.Values
		wantParam string
	}{
		{"client comments", client, func(h *tickets.Handler) http.HandlerFunc { return h.HandleComment }, url.Values{"message": {"any news?"}}, "notice="},
		{"empty comment", client, func(h *tickets.Handler) http.HandlerFunc { return h.HandleComment }, url.Values{"message": {" "}}, "error="},
		{"client cannot assign", client, func(h *tickets.Handler) http.HandlerFunc { return h.HandleAssign }, url.Values{"assignee": {"employee@test.com"}}, "error="},
		{"client cannot resolve", client, func(h *tickets.Handler) http.HandlerFunc { return h.HandleStatus }, url.Values{"status": {"Resolved"}}, "error="},
		{"manager assigns", testutil.ManagerUser(), func(h *tickets.Handler) http.HandlerFunc { return h.HandleAssign }, url.Values{"assignee": {"employee@test.com"}}, "notice="},
		{"manager cannot assign a client", testutil.ManagerUser(), func(h *tickets.Handler) http.HandlerFunc { return h.HandleAssign }, url.Values{"assignee": {"client@test.com"}}, "error="},
		{"assignee resolves", testutil.EmployeeUser(), func(h *tickets.Handler) http.HandlerFunc { return h.HandleStatus }, url.Values{"status": {"Resolved"}, "note": {"rebooted"}}, "notice="},
		{"invalid status", testutil.EmployeeUser(), func(h *tickets.Handler) http.HandlerFunc { return h.HandleStatus }, url.Values{"status": {"Parked"}}, "error="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithChiURLParam(asIdentity(postForm("/tickets/"+tk.ID, tt.form), tt.user), "ticketId", tk.ID)
			rec := httptest.NewRecorder()
			tt.handler(e.h)(rec, req)

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", rec.Code)
			}
			loc := rec.Header().Get("Location")
			if !strings.HasPrefix(loc, "/tickets/"+tk.ID+"?") || !strings.Contains(loc, tt.wantParam) {
				t.Errorf("Location = %q, want %s", loc, tt.wantParam)
			}
		})
	}

	got, err := e.set.Tickets.GetByID(ctx, tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TicketResolved || got.AssignedTo.Email != "employee@test.com" {
		t.Errorf("final ticket = %+v", got)
	}
	last := got.Comments[len(got.Comments)-1]
	if last.AuthorRole != models.AuthorResolver || last.Message != "Resolution updated: rebooted" {
		t.Errorf("last comment = %+v", last)
	}
}

func readCSV(t *testing.T, rec *httptest.ResponseRecorder) [][]string {
	t.Helper()
	body := bytes.TrimPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF})
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	return records
}

func TestServeExport_Scoped(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.fx.CreateTicket(ctx, "Alpha", "mine", "client@test.com", "employee@test.com")
	e.fx.CreateTicket(ctx, "Alpha", "colleague", "other@test.com", "")
	e.fx.CreateTicket(ctx, "Beta", "elsewhere", "other@test.com", "employee@test.com")

	tests := []struct {
		name string
		user testutil.TestUser
		page tickets.ListPage
		rows int
	}{
		{"admin sees all", testutil.AdminUser(), tickets.AdminTickets, 3},
		{"client sees own", testutil.ClientUser(), tickets.ClientTickets, 1},
		{"head sees project", testutil.ClientHeadUser(), tickets.ClientHeadTickets, 2},
		{"manager sees project", testutil.ManagerUser(), tickets.ManagerTickets, 2},
		{"employee sees assigned", testutil.EmployeeUser(), tickets.EmployeeTickets, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedRequest(http.MethodGet, tt.page.Path+"/export.csv", tt.user)
			rec := httptest.NewRecorder()
			e.h.ServeExport(tt.page)(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			records := readCSV(t, rec)
			if got := len(records) - 1; got != tt.rows {
				t.Errorf("rows = %d, want %d", got, tt.rows)
			}
		})
	}
}

func TestServeExport_EmployeeKPIColumns(t *testing.T) {
	e := newEnv(t)
	e.fx.CreateTicket(context.Background(), "Alpha", "assigned", "client@test.com", "employee@test.com")

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/employee-tickets/export.csv", testutil.EmployeeUser())
	rec := httptest.NewRecorder()
	e.h.ServeExport(tickets.EmployeeTickets)(rec, req)

	records := readCSV(t, rec)
	want := []string{"ticket_number", "subject", "response_minutes", "resolution_minutes", "status"}
	if len(records) != 2 || strings.Join(records[0], ",") != strings.Join(want, ",") {
		t.Fatalf("records = %v", records)
	}
	if records[1][2] != "" || records[1][3] != "" {
		t.Errorf("ticket without history should have blank minutes: %v", records[1])
	}
}

func TestServeExport_StatusFilter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.fx.CreateTicket(ctx, "Alpha", "open one", "client@test.com", "")
	tk := e.fx.CreateTicket(ctx, "Beta", "closed one", "client@test.com", "")
	closed := models.TicketClosed
	if _, err := e.set.Tickets.Update(ctx, tk.ID, store.TicketUpdate{Status: &closed}); err != nil {
		t.Fatal(err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/admin-tickets/export.csv?status=closed", testutil.AdminUser())
	rec := httptest.NewRecorder()
	e.h.ServeExport(tickets.AdminTickets)(rec, req)
	if records := readCSV(t, rec); len(records) != 2 || records[1][1] != "closed one" {
		t.Errorf("records = %v", records)
	}

	// A project outside the caller's scope matches nothing.
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/project-manager-tickets/export.csv?project=Beta", testutil.ManagerUser())
	rec = httptest.NewRecorder()
	e.h.ServeExport(tickets.ManagerTickets)(rec, req)
	if records := readCSV(t, rec); len(records) != 1 {
		t.Errorf("records = %v", records)
	}
}
