// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/navigation"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Activator turns a pending profile active on first sign-in.
type Activator interface {
	Activate(ctx context.Context, prof models.UserProfile) error
}

type Handler struct {
	Profiles   store.Profiles
	Activator  Activator
	SessionMgr *auth.SessionManager
	Broker     *session.Broker
	Tokens     *auth.Tokens // nil disables POST /api/token
	Limiter    *ratelimit.LoginLimiter
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	GoogleEnabled bool // True if Google OAuth is configured
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	Email         string
	ReturnURL     string
	GoogleEnabled bool
}

type forgotFormData struct {
	viewdata.BaseVM
	Error string
	Email string
	Sent  bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| credential check                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type failure int

const (
	authOK failure = iota
	authNoAccount
	authBadPassword
	authDisabled
	authLookupFailed
)

// authenticate finds the profile for email whose password hash matches.
// A real account is preferred over a pre-registration placeholder.
func (h *Handler) authenticate(ctx context.Context, r *http.Request, email, password string) (models.UserProfile, failure, error) {
	matches, err := h.Profiles.FindByEmail(ctx, email)
	if err != nil {
		return models.UserProfile{}, authLookupFailed, err
	}
	if len(matches) == 0 {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		return models.UserProfile{}, authNoAccount, nil
	}

	var found *models.UserProfile
	for i := range matches {
		p := &matches[i]
		if p.PasswordHash == "" {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
			continue
		}
		if found == nil || (models.IsTemporaryID(found.ID) && !models.IsTemporaryID(p.ID)) {
			found = p
		}
	}
	if found == nil {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, matches[0].ID, email)
		return matches[0], authBadPassword, nil
	}
	if found.Status == status.Disabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, found.ID, email)
		return *found, authDisabled, nil
	}
	return *found, authOK, nil
}

// activate promotes a pending profile. Failure is logged; the sign-in
// proceeds and the next sign-in retries.
func (h *Handler) activate(ctx context.Context, prof models.UserProfile) {
	if prof.Status != status.Pending || h.Activator == nil {
		return
	}
	if err := h.Activator.Activate(ctx, prof); err != nil {
		h.Log.Warn("activate pending profile failed",
			zap.String("uid", prof.ID),
			zap.Error(err))
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Sign in", "/login"),
		ReturnURL:     query.Get(r, "return"),
		GoogleEnabled: h.GoogleEnabled,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := normalize.Email(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.renderFormWithError(w, r, http.StatusBadRequest, "Please enter your email and password.", email)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if allowed, reason := h.Limiter.Check(r, email); !allowed {
		h.AuditLog.LoginFailedRateLimit(ctx, r, email)
		h.renderFormWithError(w, r, http.StatusTooManyRequests, reason, email)
		return
	}

	prof, fail, err := h.authenticate(ctx, r, email, password)
	switch fail {
	case authOK:
	case authLookupFailed:
		h.ErrLog.LogServerError(w, r, "login: find profile", err, "A server error occurred.", "/login")
		return
	case authDisabled:
		h.renderFormWithError(w, r, http.StatusForbidden,
			"Your account is currently disabled. Please contact an administrator.", email)
		return
	default:
		h.renderFormWithError(w, r, http.StatusUnauthorized, "Invalid email or password.", email)
		return
	}

	h.activate(ctx, prof)

	id := session.Identity{UID: prof.ID, Email: prof.Email}
	if err := h.SessionMgr.SignIn(w, r, id); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("uid", prof.ID))
		h.renderFormWithError(w, r, http.StatusInternalServerError, "Unable to create session. Please try again.", email)
		return
	}
	h.Limiter.ResetEmail(ctx, email)
	h.Broker.SignIn(id)
	h.AuditLog.LoginSuccess(ctx, r, prof.ID, prof.Email, "password")

	dest := navigation.SafeBackURL(r, navigation.AfterLogin(guard.DashboardPath(prof.Role)))
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, code int, msg, email string) {
	// From POST, "return" will be in the form; from GET, we might rely on the query.
	ret := strings.TrimSpace(r.FormValue("return"))
	if ret == "" {
		ret = query.Get(r, "return")
	}

	w.WriteHeader(code)
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Sign in", "/login"),
		Error:         msg,
		Email:         email,
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| /forgot-password                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeForgot(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "forgot_password", forgotFormData{
		BaseVM: viewdata.NewBaseVM(r, "Reset password", "/login"),
	})
}

// HandleForgotPost records the request and always shows the same
// confirmation, whether or not the address has an account.
func (h *Handler) HandleForgotPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/forgot-password")
		return
	}
	email := normalize.Email(r.FormValue("email"))
	data := forgotFormData{BaseVM: viewdata.NewBaseVM(r, "Reset password", "/login"), Email: email}
	if email == "" {
		data.Error = "Please enter your email address."
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "forgot_password", data)
		return
	}

	if allowed, _ := h.Limiter.Check(r, ""); allowed {
		h.AuditLog.PasswordResetRequested(r.Context(), r, email)
	}
	data.Sent = true
	templates.Render(w, r, "forgot_password", data)
}
