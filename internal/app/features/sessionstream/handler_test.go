package sessionstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/features/sessionstream"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/supportdesk/internal/testutil"
	"go.uber.org/zap"
)

type stubRoles map[string]models.Role

func (s stubRoles) ResolveRole(_ context.Context, id session.Identity) (models.Role, bool) {
	r, ok := s[id.UID]
	return r, ok
}

func newRequest(ctx context.Context, target string, id *session.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	if id != nil {
		req = auth.WithIdentity(req, *id)
	}
	return req
}

func TestServeStream_EndsOnSignOut(t *testing.T) {
	broker := session.NewBroker()
	h := sessionstream.NewHandler(broker, stubRoles{"u1": models.RoleAdmin}, zap.NewNop())
	id := session.Identity{UID: "u1", Email: "a@test.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	time.AfterFunc(100*time.Millisecond, func() { broker.SignOut(id) })

	rec := httptest.NewRecorder()
	start := time.Now()
	h.ServeStream(rec, newRequest(ctx, "/api/session/stream?role=admin", &id))

	if time.Since(start) >= 2*time.Second {
		t.Fatal("stream did not end after sign-out")
	}
	body := rec.Body.String()
	for _, want := range []string{
		`{"kind":"granted","role":"admin"}`,
		`{"kind":"redirect","target":"/login"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s:\n%s", want, body)
		}
	}
	if !strings.HasPrefix(body, "event: guard\n") {
		t.Errorf("body = %q", body)
	}
}

func TestServeStream_WrongRoleRedirectsToDashboard(t *testing.T) {
	h := sessionstream.NewHandler(session.NewBroker(), stubRoles{"u2": models.RoleClient}, zap.NewNop())
	id := session.Identity{UID: "u2", Email: "c@test.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	h.ServeStream(rec, newRequest(ctx, "/api/session/stream?role=admin", &id))

	if want := `{"kind":"redirect","target":"/clientdashboard","role":"client"}`; !strings.Contains(rec.Body.String(), want) {
		t.Errorf("body missing %s:\n%s", want, rec.Body.String())
	}
}

func TestServeStream_Rejections(t *testing.T) {
	h := sessionstream.NewHandler(session.NewBroker(), stubRoles{}, zap.NewNop())
	id := session.Identity{UID: "u3"}

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"anonymous", newRequest(context.Background(), "/api/session/stream", nil), http.StatusUnauthorized},
		{"unknown role", newRequest(context.Background(), "/api/session/stream?role=owner", &id), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeStream(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// Without ?role= the stream still confirms the profile behind the session.
func TestServeStream_DisabledProfileSentToLogin(t *testing.T) {
	set := testutil.NewMemoryBackend(t)
	fx := testutil.NewFixtures(t, set)
	fx.CreateProfileWithStatus(context.Background(), "uid-off", "off@test.com", models.RoleEmployee, status.Disabled)

	broker := session.NewBroker()
	roles := auth.NewResolver(set.Profiles, broker, nil, zap.NewNop())
	h := sessionstream.NewHandler(broker, roles, zap.NewNop())

	tests := []struct {
		name string
		id   session.Identity
	}{
		{"disabled", session.Identity{UID: "uid-off", Email: "off@test.com"}},
		{"no profile", session.Identity{UID: "uid-gone", Email: "gone@test.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			rec := httptest.NewRecorder()
			start := time.Now()
			h.ServeStream(rec, newRequest(ctx, "/api/session/stream", &tt.id))

			if time.Since(start) >= 2*time.Second {
				t.Fatal("stream did not end")
			}
			body := rec.Body.String()
			if strings.Contains(body, `"kind":"granted"`) {
				t.Errorf("stream granted a signed-out profile:\n%s", body)
			}
			if !strings.Contains(body, `{"kind":"redirect","target":"/login"}`) {
				t.Errorf("body missing redirect to /login:\n%s", body)
			}
		})
	}
}
