// internal/app/features/tickets/handler.go
package tickets

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/policy/ticketpolicy"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/ticketing"
	"go.uber.org/zap"
)

// Handler serves the ticket list pages, the ticket form and ticket detail.
type Handler struct {
	Stores  store.Set
	Service *ticketing.Service
	Roles   guard.RoleResolver
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(stores store.Set, svc *ticketing.Service, roles guard.RoleResolver, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Stores: stores, Service: svc, Roles: roles, ErrLog: errLog, Log: logger}
}

// caller identifies the signed-in user and builds their ticket scope.
// /ticketing and /tickets/{id} are guarded without a role lookup, so the
// role is resolved here when the guard did not set one. It writes the
// response itself when ok is false.
func (h *Handler) caller(ctx context.Context, w http.ResponseWriter, r *http.Request) (ticketpolicy.Caller, ticketpolicy.Scope, *http.Request, bool) {
	id, signed := auth.CurrentIdentity(r)
	if !signed {
		auth.RedirectToLogin(w, r)
		return ticketpolicy.Caller{}, ticketpolicy.Scope{}, r, false
	}
	role, ok := guard.RoleFrom(r.Context())
	if !ok {
		role, ok = h.Roles.ResolveRole(ctx, id)
		if !ok {
			auth.RedirectToLogin(w, r)
			return ticketpolicy.Caller{}, ticketpolicy.Scope{}, r, false
		}
		r = r.WithContext(guard.WithRole(r.Context(), role))
	}

	c := ticketpolicy.Caller{UID: id.UID, Email: id.Email, Role: role}
	scope, err := ticketpolicy.ScopeFor(ctx, h.Stores.Profiles, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "build ticket scope failed", err, "Your tickets could not be loaded.", "/")
		return c, scope, r, false
	}
	return c, scope, r, true
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
