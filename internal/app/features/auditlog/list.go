// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store/audit"
	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Item is one audit event with its profile ids resolved to emails.
type Item struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	Actor         string            `json:"actor,omitempty"`
	User          string            `json:"user,omitempty"`
	ProjectID     string            `json:"project_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listData struct {
	viewdata.BaseVM

	Items []Item

	Category  string
	EventType string
	Since     string

	Categories []string
}

// filterFrom reads ?category, ?event_type, ?user, ?project, ?since
// (YYYY-MM-DD) and ?limit.
func filterFrom(r *http.Request) audit.QueryFilter {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		UserID:    strings.TrimSpace(q.Get("user")),
		ProjectID: strings.TrimSpace(q.Get("project")),
		Limit:     defaultLimit,
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = int64(min(n, maxLimit))
	}
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(q.Get("since"))); err == nil {
		f.Since = &t
	}
	return f
}

// load queries the events and resolves actor and user ids to emails.
func (h *Handler) load(ctx context.Context, f audit.QueryFilter) ([]Item, error) {
	events, err := h.Events.Query(ctx, f)
	if err != nil {
		return nil, err
	}

	emails := map[string]string{}
	lookup := func(uid string) string {
		if uid == "" {
			return ""
		}
		if e, ok := emails[uid]; ok {
			return e
		}
		e := uid
		if p, err := h.Profiles.GetByID(ctx, uid); err == nil {
			e = p.Email
		}
		emails[uid] = e
		return e
	}

	items := make([]Item, 0, len(events))
	for _, e := range events {
		items = append(items, Item{
			ID:            e.ID,
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			Actor:         lookup(e.ActorID),
			User:          lookup(e.UserID),
			ProjectID:     e.ProjectID,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		})
	}
	return items, nil
}

// ServeList handles GET /audit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	f := filterFrom(r)
	items, err := h.load(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, "A database error occurred.", "/admin")
		return
	}

	data := listData{
		BaseVM:     viewdata.NewBaseVM(r, "Audit log", "/admin"),
		Items:      items,
		Category:   f.Category,
		EventType:  f.EventType,
		Categories: []string{audit.CategoryAuth, audit.CategoryAdmin},
	}
	if f.Since != nil {
		data.Since = f.Since.Format("2006-01-02")
	}
	templates.Render(w, r, "audit_list", data)
}

// ServeJSON handles GET /api/audit-events with the same filters.
func (h *Handler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	items, err := h.load(ctx, filterFrom(r))
	if err != nil {
		apierr.Internal(w, r, h.Log, "query audit events failed", err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"events": items})
}
