package guard

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"go.uber.org/zap"
)

// StateReader exposes the session of a request.
type StateReader interface {
	State(r *http.Request) session.State
	Clear(w http.ResponseWriter, r *http.Request)
}

// Middleware enforces p on every request. Granted requests continue with the
// resolved role on the context. Redirects become:
//   - HTMX: HX-Redirect with 401 (to /login) or 403
//   - HTML: 303 See Other
//   - API:  401/403 JSON carrying the redirect target
//
// An authenticated caller sent to /login has lost its role (missing or
// disabled profile), so its cookie is cleared.
func Middleware(p Policy, sessions StateReader, roles RoleResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := sessions.State(r)
			res := p.Decide(r.Context(), st, roles)

			if res.Kind == Granted {
				if res.Role != "" {
					r = r.WithContext(WithRole(r.Context(), res.Role))
				}
				next.ServeHTTP(w, r)
				return
			}

			target := res.Target
			code := http.StatusForbidden
			if target == LoginPath {
				code = http.StatusUnauthorized
				if st.Authenticated {
					logger.Info("clearing session without a role",
						zap.String("path", r.URL.Path))
					sessions.Clear(w, r)
				} else if r.URL.Path != LoginPath {
					target += "?return=" + url.QueryEscape(r.URL.RequestURI())
				}
			}
			writeRedirect(w, r, target, code)
		})
	}
}

func writeRedirect(w http.ResponseWriter, r *http.Request, target string, code int) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(code)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	msg := "forbidden"
	if code == http.StatusUnauthorized {
		msg = "unauthorized"
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "redirect": target})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
