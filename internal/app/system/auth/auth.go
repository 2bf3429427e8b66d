// Package auth owns the identity side of a request: the cookie session, bearer
// tokens, and resolving an identity to a role through the profile store.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "supportdesk-session"

	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
	userEmail = "user_email"
)

type ctxKey string

const identityKey ctxKey = "identity"

/*─────────────────────────────────────────────────────────────────────────────*
| Identity in context                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// CurrentIdentity returns the identity loaded for this request, if any.
func CurrentIdentity(r *http.Request) (session.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(session.Identity)
	return id, ok
}

// WithIdentity returns r carrying id.
func WithIdentity(r *http.Request, id session.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// State returns the session state of the request.
func State(r *http.Request) session.State {
	if id, ok := CurrentIdentity(r); ok {
		return session.SignedIn(id)
	}
	return session.SignedOut()
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager reads and writes the signed cookie session.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	logger *zap.Logger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure + SameSite=None; for local http use secure=false.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// LoadSession injects the cookie identity into the request context.
// A request that already carries an identity (bearer token) is left alone.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			// Tampered or rotated-key cookies decode as a fresh session.
			m.logger.Debug("session decode failed", zap.Error(err))
		}
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			id := session.Identity{
				UID:   getString(sess, userIDKey),
				Email: getString(sess, userEmail),
			}
			if id.UID != "" {
				r = WithIdentity(r, id)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SignIn writes id into the cookie session.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, id session.Identity) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = id.UID
	sess.Values[userEmail] = id.Email
	return sess.Save(r, w)
}

// Clear expires the cookie session.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) {
	sess, _ := m.store.Get(r, m.name)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		m.logger.Warn("session clear failed", zap.Error(err))
	}
}

// State returns the session state of r.
func (m *SessionManager) State(r *http.Request) session.State {
	return State(r)
}

// RequireSignedIn ensures there is an identity in context (set by LoadSession).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		RedirectToLogin(w, r)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// RedirectToLogin answers an unauthenticated request in the caller's idiom.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login?return=" + url.QueryEscape(r.URL.RequestURI())
	switch {
	case IsHTMX(r):
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusUnauthorized)
	case WantsHTML(r):
		http.Redirect(w, r, target, http.StatusSeeOther)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// WantsHTML treats a request as a page load if it is HTMX or Accepts text/html.
func WantsHTML(r *http.Request) bool {
	if IsHTMX(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
