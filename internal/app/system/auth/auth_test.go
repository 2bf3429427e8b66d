package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-32-characters!!",
		"test-session",
		"",
		time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty session key")
	}
}

// signedInRequest signs id in and returns a follow-up request carrying the cookie.
func signedInRequest(t *testing.T, sm *auth.SessionManager, id session.Identity) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), id); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	req := httptest.NewRequest("GET", "/projects", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSignIn_LoadSessionRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	want := session.Identity{UID: "uid-1", Email: "a@corp.com"}
	req := signedInRequest(t, sm, want)

	var got session.Identity
	var ok bool
	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.CurrentIdentity(r)
		if st := sm.State(r); !st.Authenticated || st.Identity.UID != want.UID {
			t.Errorf("State = %+v", st)
		}
	})).ServeHTTP(httptest.NewRecorder(), req)

	if !ok || got != want {
		t.Errorf("identity = %+v, %v; want %+v", got, ok, want)
	}
}

func TestLoadSession_TamperedCookieIsSignedOut(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "garbage"})

	called := false
	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.CurrentIdentity(r); ok {
			t.Error("tampered cookie must not produce an identity")
		}
	})).ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("handler not called")
	}
}

func TestLoadSession_KeepsExistingIdentity(t *testing.T) {
	sm := newTestSessionManager(t)
	req := signedInRequest(t, sm, session.Identity{UID: "cookie-uid"})
	req = auth.WithIdentity(req, session.Identity{UID: "bearer-uid"})

	sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.CurrentIdentity(r)
		if id.UID != "bearer-uid" {
			t.Errorf("UID = %q, want bearer-uid", id.UID)
		}
	})).ServeHTTP(httptest.NewRecorder(), req)
}

func TestClear_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	req := signedInRequest(t, sm, session.Identity{UID: "uid-1"})

	rec := httptest.NewRecorder()
	sm.Clear(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newTestSessionManager(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := sm.RequireSignedIn(next)

	tests := []struct {
		name     string
		headers  map[string]string
		wantCode int
		check    func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:     "html redirects to login",
			headers:  map[string]string{"Accept": "text/html"},
			wantCode: http.StatusSeeOther,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login?return=") {
					t.Errorf("Location = %q", loc)
				}
			},
		},
		{
			name:     "api gets 401",
			headers:  map[string]string{"Accept": "application/json"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "htmx gets HX-Redirect",
			headers:  map[string]string{"HX-Request": "true"},
			wantCode: http.StatusUnauthorized,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if hx := rec.Header().Get("HX-Redirect"); !strings.Contains(hx, "/login") {
					t.Errorf("HX-Redirect = %q", hx)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/tickets?page=2", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}

	t.Run("signed in proceeds", func(t *testing.T) {
		req := auth.WithIdentity(httptest.NewRequest("GET", "/", nil), session.Identity{UID: "uid-1"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestState_SignedOut(t *testing.T) {
	if st := auth.State(httptest.NewRequest("GET", "/", nil)); st.Authenticated || st.Identity != nil {
		t.Errorf("State = %+v", st)
	}
}
