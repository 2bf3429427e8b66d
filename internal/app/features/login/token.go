// internal/app/features/login/token.go
package login

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type tokenRequest struct {
	Email    string `json:"email" validate:"required,email_format"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// HandleToken handles POST /api/token and exchanges credentials for a
// bearer token.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !apierr.Decode(w, r, &req) {
		return
	}
	email := normalize.Email(req.Email)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if allowed, reason := h.Limiter.Check(r, email); !allowed {
		h.AuditLog.LoginFailedRateLimit(ctx, r, email)
		apierr.Write(w, http.StatusTooManyRequests, reason)
		return
	}

	prof, fail, err := h.authenticate(ctx, r, email, req.Password)
	switch fail {
	case authOK:
	case authLookupFailed:
		apierr.Internal(w, r, h.Log, "token: find profile", err)
		return
	case authDisabled:
		apierr.Write(w, http.StatusForbidden, "account disabled")
		return
	default:
		apierr.Write(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.activate(ctx, prof)

	id := session.Identity{UID: prof.ID, Email: prof.Email}
	tok, exp, err := h.Tokens.Issue(id)
	if err != nil {
		apierr.Internal(w, r, h.Log, "token: sign", err)
		return
	}
	h.Limiter.ResetEmail(ctx, email)
	h.AuditLog.LoginSuccess(ctx, r, prof.ID, prof.Email, "token")
	h.Log.Debug("issued api token", zap.String("uid", prof.ID), zap.Time("expires_at", exp))

	apierr.JSON(w, http.StatusOK, tokenResponse{Token: tok, ExpiresAt: exp, Role: string(prof.Role)})
}
