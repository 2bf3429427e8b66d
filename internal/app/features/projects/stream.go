// internal/app/features/projects/stream.go
package projects

import (
	"net/http"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/sse"
	"go.uber.org/zap"
)

// Stream answers GET /api/projects/stream with a "projects" event for the
// current list and one for every later change.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	updates, err := h.Manager.WatchProjects(ctx)
	if err != nil {
		apierr.Internal(w, r, h.Log, "watch projects failed", err)
		return
	}
	s, err := sse.Open(w)
	if err != nil {
		apierr.Write(w, http.StatusNotImplemented, "streaming is not supported")
		return
	}

	ping := time.NewTicker(sse.KeepAlive)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ps, ok := <-updates:
			if !ok {
				return
			}
			if err := s.Send("projects", ps); err != nil {
				h.Log.Debug("project stream closed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := s.Ping(); err != nil {
				return
			}
		}
	}
}
