// internal/app/features/sessionstream/handler.go
package sessionstream

import (
	"net/http"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/sse"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler streams guard results for the signed-in caller.
type Handler struct {
	Broker *session.Broker
	Roles  guard.RoleResolver
	Log    *zap.Logger
}

func NewHandler(broker *session.Broker, roles guard.RoleResolver, logger *zap.Logger) *Handler {
	return &Handler{Broker: broker, Roles: roles, Log: logger}
}

// Routes serves /api/session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/stream", h.ServeStream)
	return r
}

// policy reads ?role=; without it only authentication is checked.
func policy(r *http.Request) (guard.Policy, bool) {
	v := r.URL.Query().Get("role")
	if v == "" {
		return guard.Authenticated, true
	}
	role, ok := models.ParseRole(v)
	if !ok {
		return nil, false
	}
	return guard.RequireRole(role), true
}

// ServeStream answers GET /api/session/stream with a "guard" event per
// result until the client goes away or the session ends.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, "sign in required")
		return
	}
	p, ok := policy(r)
	if !ok {
		apierr.Write(w, http.StatusBadRequest, "unknown role")
		return
	}
	s, err := sse.Open(w)
	if err != nil {
		apierr.Write(w, http.StatusNotImplemented, "streaming is not supported")
		return
	}

	// emit runs under the guard's lock; never block it. The newest result
	// wins when the writer falls behind.
	results := make(chan guard.Result, 1)
	emit := func(res guard.Result) {
		for {
			select {
			case results <- res:
				return
			default:
				select {
				case <-results:
				default:
				}
			}
		}
	}

	ctx := r.Context()
	stop := guard.Run(ctx, p, h.Broker.Source(id), h.Roles, emit)
	defer stop()

	ping := time.NewTicker(sse.KeepAlive)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			if err := s.Send("guard", res); err != nil {
				h.Log.Debug("session stream closed", zap.String("uid", id.UID), zap.Error(err))
				return
			}
			if res.Kind == guard.Redirect && res.Target == guard.LoginPath {
				return
			}
		case <-ping.C:
			if err := s.Ping(); err != nil {
				return
			}
		}
	}
}
