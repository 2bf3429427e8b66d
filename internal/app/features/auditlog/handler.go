// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"go.uber.org/zap"
)

// Handler serves the admin audit trail.
type Handler struct {
	Events   store.AuditEvents
	Profiles store.Profiles
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs an audit log handler over the audit and profile
// stores.
func NewHandler(events store.AuditEvents, profiles store.Profiles, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events:   events,
		Profiles: profiles,
		Log:      logger,
		ErrLog:   errLog,
	}
}
