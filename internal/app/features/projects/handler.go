// internal/app/features/projects/handler.go
package projects

import (
	"errors"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/membership"
	"go.uber.org/zap"
)

// Handler serves the admin project screen and its JSON API.
type Handler struct {
	Manager *membership.Manager
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(mgr *membership.Manager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Manager: mgr, ErrLog: errLog, Log: logger}
}

// writeError maps a manager error to its HTTP response. Persistence
// failures are logged with the completed steps and answered generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, email string, err error) {
	switch {
	case errors.Is(err, membership.ErrNoChanges):
		apierr.JSON(w, http.StatusOK, map[string]string{"info": "no changes were made"})
	case errors.Is(err, membership.ErrDuplicateName),
		errors.Is(err, membership.ErrRoleConflict),
		errors.Is(err, membership.ErrAlreadyMember):
		apierr.Write(w, http.StatusConflict, err.Error())
	case errors.Is(err, membership.ErrEmailBlocked):
		apierr.WriteExtra(w, http.StatusConflict, err.Error(), map[string]string{
			"unblock_url": "/api/blocked-emails/" + url.PathEscape(email),
		})
	case errors.Is(err, membership.ErrInvalidDomain),
		errors.Is(err, membership.ErrNameRequired),
		errors.Is(err, membership.ErrInvalidUserType):
		apierr.Write(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, membership.ErrProjectNotFound),
		errors.Is(err, membership.ErrMemberNotFound):
		apierr.Write(w, http.StatusNotFound, err.Error())
	default:
		var pf *membership.PartialFailure
		if errors.As(err, &pf) {
			h.Log.Error("project change stopped part way",
				zap.Strings("completed", pf.Completed()),
				zap.String("path", r.URL.Path))
		}
		apierr.Internal(w, r, h.Log, "project change failed", err)
	}
}
