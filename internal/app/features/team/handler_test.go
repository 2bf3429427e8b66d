package team_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/features/team"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/supportdesk/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h   *team.Handler
	set store.Set
}

// newEnv puts the manager and the employee on Alpha and a second employee
// on Beta only.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	set := testutil.NewMemoryBackend(t)
	fx := testutil.NewFixtures(t, set)

	alpha := fx.CreateProject(ctx, "Alpha")
	beta := fx.CreateProject(ctx, "Beta")

	pm := testutil.ManagerUser()
	emp := testutil.EmployeeUser()
	for _, m := range []struct {
		project models.Project
		uid     string
		email   string
		role    models.Role
	}{
		{alpha, pm.UID, pm.Email, pm.Role},
		{alpha, emp.UID, emp.Email, emp.Role},
		{beta, "uid-other", "other@test.com", models.RoleEmployee},
	} {
		prof := fx.CreateProfile(ctx, m.uid, m.email, m.role)
		prof.Projects = []string{m.project.ID}
		prof.Project = []string{m.project.Name}
		if err := set.Profiles.Upsert(ctx, prof); err != nil {
			t.Fatal(err)
		}
		if err := set.Projects.PushMember(ctx, m.project.ID, models.Member{
			Email: m.email, Role: m.role, UID: m.uid, UserType: models.UserTypeEmployee, Status: "active",
		}); err != nil {
			t.Fatal(err)
		}
	}

	created := time.Now().UTC().Add(-2 * time.Hour)
	_, err := set.Tickets.Create(ctx, models.Ticket{
		Subject:    "Slow page",
		Project:    "Alpha",
		Status:     models.TicketResolved,
		AssignedTo: models.Assignee{Email: emp.Email},
		Created:    created,
		Comments: []models.Comment{
			{Message: "Ticket assigned to " + emp.Email, AuthorRole: models.AuthorSystem, Timestamp: created.Add(10 * time.Minute)},
			{Message: "Resolution updated: cache", AuthorRole: models.AuthorResolver, Timestamp: created.Add(70 * time.Minute)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	fx.CreateTicket(ctx, "Alpha", "Unassigned", "client@test.com", "")

	return &env{h: team.NewHandler(set, uierrors.NewErrorLogger(logger), logger), set: set}
}

func TestServeKPI(t *testing.T) {
	e := newEnv(t)

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest(http.MethodGet, "/api/kpi/employee@test.com", testutil.ManagerUser()), "email", "Employee@Test.com")
	rec := httptest.NewRecorder()
	e.h.ServeKPI(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Email   string `json:"email"`
		Summary struct {
			Count                int      `json:"count"`
			Resolved             int      `json:"resolved"`
			AvgResponseMinutes   *float64 `json:"avg_response_minutes"`
			AvgResolutionMinutes *float64 `json:"avg_resolution_minutes"`
			ResolutionRate       float64  `json:"resolution_rate"`
		} `json:"summary"`
		Tickets []map[string]any `json:"tickets"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Email != "employee@test.com" || body.Summary.Count != 1 || body.Summary.Resolved != 1 {
		t.Errorf("body = %+v", body)
	}
	if body.Summary.AvgResponseMinutes == nil || *body.Summary.AvgResponseMinutes != 10 {
		t.Errorf("avg response = %v, want 10", body.Summary.AvgResponseMinutes)
	}
	if body.Summary.AvgResolutionMinutes == nil || *body.Summary.AvgResolutionMinutes != 60 {
		t.Errorf("avg resolution = %v, want 60", body.Summary.AvgResolutionMinutes)
	}
	if body.Summary.ResolutionRate != 100 || len(body.Tickets) != 1 {
		t.Errorf("rate = %v, tickets = %d", body.Summary.ResolutionRate, len(body.Tickets))
	}
}

func TestServeKPI_Access(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name  string
		user  testutil.TestUser
		email string
		want  int
	}{
		{"employee outside manager's projects", testutil.ManagerUser(), "other@test.com", http.StatusForbidden},
		{"unknown email", testutil.ManagerUser(), "nobody@test.com", http.StatusNotFound},
		{"admin sees everyone", testutil.AdminUser(), "other@test.com", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest(http.MethodGet, "/api/kpi/x", tt.user), "email", tt.email)
			rec := httptest.NewRecorder()
			e.h.ServeKPI(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServeExport(t *testing.T) {
	e := newEnv(t)

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest(http.MethodGet, "/team/employee/uid-employee/export.csv", testutil.ManagerUser()), "id", testutil.EmployeeUser().UID)
	rec := httptest.NewRecorder()
	e.h.ServeExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := bytes.TrimPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF})
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %v", records)
	}
	row := records[1]
	if row[1] != "Slow page" || row[2] != "10.00" || row[3] != "60.00" || row[4] != models.TicketResolved {
		t.Errorf("row = %v", row)
	}
}
