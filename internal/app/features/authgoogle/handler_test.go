package authgoogle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/features/authgoogle"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/supportdesk/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, email string, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "g-1", "email": email, "verified_email": verified,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	h      *authgoogle.Handler
	set    store.Set
	broker *session.Broker
}

func newEnv(t *testing.T, srv *httptest.Server) *env {
	t.Helper()
	logger := zap.NewNop()
	set := testutil.NewMemoryBackend(t)
	sessionMgr, err := auth.NewSessionManager("test-session-key-32-characters!!", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatal(err)
	}
	broker := session.NewBroker()
	h := authgoogle.NewHandler(set.Profiles, nil, sessionMgr, broker, nil,
		"client-id", "client-secret", "http://desk.test",
		[]byte("state-key-0123456789abcdef012345"), false, logger)
	if srv != nil {
		h.Endpoint = oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
		h.UserInfoURL = srv.URL + "/userinfo"
	}
	return &env{h: h, set: set, broker: broker}
}

// begin runs /auth/google and returns the state cookie and state value.
func begin(t *testing.T, h *authgoogle.Handler, ret string) (*http.Cookie, string) {
	t.Helper()
	target := "/auth/google"
	if ret != "" {
		target += "?return=" + url.QueryEscape(ret)
	}
	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest("GET", target, nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("ServeLogin status = %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("no state in %s", loc)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "supportdesk-oauth-state" {
			return c, state
		}
	}
	t.Fatal("state cookie not set")
	return nil, ""
}

func callback(h *authgoogle.Handler, cookie *http.Cookie, state string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeCallback(rec, req)
	return rec
}

func TestServeLogin_NotConfigured(t *testing.T) {
	e := newEnv(t, nil)
	e.h.ClientSecret = ""
	rec := httptest.NewRecorder()
	e.h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google", nil))

	if got := rec.Header().Get("Location"); got != "/login?error=google_not_configured" {
		t.Errorf("Location = %q", got)
	}
}

func TestServeCallback_SignsInKnownProfile(t *testing.T) {
	srv := fakeGoogle(t, "Head@Example.com", true)
	e := newEnv(t, srv)
	fx := testutil.NewFixtures(t, e.set)
	fx.CreateProfile(context.Background(), "uid-head", "head@example.com", models.RoleClientHead)

	cookie, state := begin(t, e.h, "")
	rec := callback(e.h, cookie, state)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/client-head-dashboard" {
		t.Errorf("Location = %q", got)
	}
	if st, ok := e.broker.Latest("uid-head"); !ok || !st.Authenticated {
		t.Errorf("broker state = %+v, %v", st, ok)
	}
}

func TestServeCallback_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		verified bool
		status   string
		badState bool
		want     string
	}{
		{"state mismatch", "head@example.com", true, status.Active, true, "/login?error=invalid_state"},
		{"unverified email", "head@example.com", false, status.Active, false, "/login?error=email_unverified"},
		{"no account", "other@example.com", true, status.Active, false, "/login?error=no_account"},
		{"disabled", "head@example.com", true, status.Disabled, false, "/login?error=account_disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeGoogle(t, tt.email, tt.verified)
			e := newEnv(t, srv)
			fx := testutil.NewFixtures(t, e.set)
			fx.CreateProfileWithStatus(context.Background(), "uid-head", "head@example.com", models.RoleClientHead, tt.status)

			cookie, state := begin(t, e.h, "")
			if tt.badState {
				state = "forged"
			}
			rec := callback(e.h, cookie, state)
			if got := rec.Header().Get("Location"); got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServeCallback_MissingCookie(t *testing.T) {
	e := newEnv(t, nil)
	rec := callback(e.h, nil, "anything")
	if got := rec.Header().Get("Location"); got != "/login?error=invalid_state" {
		t.Errorf("Location = %q", got)
	}
}
