// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Broker     *session.Broker
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, broker *session.Broker, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Broker:     broker,
		AuditLog:   audit,
	}
}

// ServeLogout handles GET /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	id, signedIn := auth.CurrentIdentity(r)

	h.SessionMgr.Clear(w, r)

	if signedIn {
		// Live guards for this identity (other tabs) see the sign-out.
		if h.Broker != nil {
			h.Broker.SignOut(id)
		}
		h.AuditLog.Logout(r.Context(), r, id.UID)
		h.Log.Info("signed out", zap.String("uid", id.UID))
	}

	if auth.IsHTMX(r) {
		w.Header().Set("HX-Redirect", guard.LoginPath)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}
