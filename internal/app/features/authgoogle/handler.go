// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie = "supportdesk-oauth-state"
	stateTTL    = 10 * time.Minute

	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Activator turns a pending profile active on first sign-in.
type Activator interface {
	Activate(ctx context.Context, prof models.UserProfile) error
}

// Handler handles Google OAuth authentication.
type Handler struct {
	Profiles   store.Profiles
	Activator  Activator
	SessionMgr *auth.SessionManager
	Broker     *session.Broker
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://desk.example.com/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	cookies *securecookie.SecureCookie
	secure  bool
}

// NewHandler creates a new Google OAuth handler. stateKey signs the
// short-lived state cookie.
func NewHandler(
	profiles store.Profiles,
	activator Activator,
	sessionMgr *auth.SessionManager,
	broker *session.Broker,
	audit *auditlog.Logger,
	clientID, clientSecret, baseURL string,
	stateKey []byte,
	secure bool,
	logger *zap.Logger,
) *Handler {
	sc := securecookie.New(stateKey, nil)
	sc.MaxAge(int(stateTTL.Seconds()))
	return &Handler{
		Profiles:     profiles,
		Activator:    activator,
		SessionMgr:   sessionMgr,
		Broker:       broker,
		AuditLog:     audit,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
		cookies:      sc,
		secure:       secure,
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// oauthState travels in a signed cookie between the redirect and the callback.
type oauthState struct {
	State     string
	ReturnURL string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	returnURL := query.Get(r, "return")
	encoded, err := h.cookies.Encode(stateCookie, oauthState{State: state, ReturnURL: returnURL})
	if err != nil {
		h.Log.Error("failed to encode OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    encoded,
		Path:     "/auth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.oauth2Config().AuthCodeURL(state)

	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, fetches the verified email, and signs the matching       |
| profile in.                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		h.redirectToLogin(w, r, "google_denied")
		return
	}

	saved, ok := h.readState(r)
	h.clearState(w)
	if !ok || saved.State == "" || saved.State != r.URL.Query().Get("state") {
		h.Log.Warn("invalid or expired OAuth state")
		h.redirectToLogin(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.redirectToLogin(w, r, "invalid_code")
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.redirectToLogin(w, r, "token_exchange")
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.redirectToLogin(w, r, "user_info")
		return
	}
	if !info.EmailVerified || info.Email == "" {
		h.Log.Info("Google OAuth: email not verified", zap.String("email", info.Email))
		h.redirectToLogin(w, r, "email_unverified")
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	email := normalize.Email(info.Email)
	prof, err := h.findProfile(lookupCtx, email)
	switch err {
	case nil:
	case errUserNotFound:
		h.AuditLog.LoginFailedUserNotFound(lookupCtx, r, email)
		h.redirectToLogin(w, r, "no_account")
		return
	case errUserDisabled:
		h.AuditLog.LoginFailedUserDisabled(lookupCtx, r, prof.ID, email)
		h.redirectToLogin(w, r, "account_disabled")
		return
	default:
		h.Log.Error("failed to look up profile", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	if prof.Status == status.Pending && h.Activator != nil {
		if err := h.Activator.Activate(lookupCtx, prof); err != nil {
			h.Log.Warn("activate pending profile failed", zap.String("uid", prof.ID), zap.Error(err))
		}
	}

	id := session.Identity{UID: prof.ID, Email: prof.Email}
	if err := h.SessionMgr.SignIn(w, r, id); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("uid", prof.ID))
		h.redirectToLogin(w, r, "internal")
		return
	}
	h.Broker.SignIn(id)
	h.AuditLog.LoginSuccess(lookupCtx, r, prof.ID, prof.Email, "google")

	dest := urlutil.SafeReturn(saved.ReturnURL, "", guard.DashboardPath(prof.Role))
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Profile lookup                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	errUserNotFound = fmt.Errorf("user not found")
	errUserDisabled = fmt.Errorf("user disabled")
)

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// findProfile returns the profile for email, preferring a real account over
// a pre-registration placeholder.
func (h *Handler) findProfile(ctx context.Context, email string) (models.UserProfile, error) {
	matches, err := h.Profiles.FindByEmail(ctx, email)
	if err != nil {
		return models.UserProfile{}, err
	}
	if len(matches) == 0 {
		return models.UserProfile{}, errUserNotFound
	}
	best := matches[0]
	for _, p := range matches[1:] {
		if models.IsTemporaryID(best.ID) && !models.IsTemporaryID(p.ID) {
			best = p
		}
	}
	if best.Status == status.Disabled {
		return best, errUserDisabled
	}
	return best, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) readState(r *http.Request) (oauthState, bool) {
	var st oauthState
	c, err := r.Cookie(stateCookie)
	if err != nil {
		return st, false
	}
	if err := h.cookies.Decode(stateCookie, c.Value, &st); err != nil {
		h.Log.Debug("OAuth state cookie rejected", zap.Error(err))
		return st, false
	}
	return st, true
}

func (h *Handler) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+code, http.StatusSeeOther)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
