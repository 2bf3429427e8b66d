// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/membership"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/ticketing"
	"github.com/dalemusser/supportdesk/internal/app/system/workers"
	"go.uber.org/zap"
)

// services are the process-wide collaborators built once from DBDeps.
type services struct {
	Broker    *session.Broker
	Audit     *auditlog.Logger
	Roles     *auth.Resolver
	Members   *membership.Manager
	Tickets   *ticketing.Service
	Reconcile *workers.Reconcile
}

// init fills s from deps. It is a no-op once s is built.
func (s *services) init(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	if s.Broker != nil {
		return
	}
	set := deps.Stores
	pub := deps.publisher()

	s.Broker = session.NewBroker()
	s.Audit = auditlog.New(set.Audit, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	s.Roles = auth.NewResolver(set.Profiles, s.Broker, s.Audit, logger)
	s.Members = membership.New(membership.Deps{
		Profiles: set.Profiles,
		Projects: set.Projects,
		Tickets:  set.Tickets,
		Blocked:  set.Blocked,
		Audit:    s.Audit,
		Events:   pub,
		Sessions: s.Broker,
		Logger:   logger,
	})
	s.Tickets = ticketing.New(ticketing.Deps{
		Tickets:  set.Tickets,
		Profiles: set.Profiles,
		Projects: set.Projects,
		Forms:    set.FormConfigs,
		Audit:    s.Audit,
		Events:   pub,
		Logger:   logger,
	})
	if appCfg.ReconcileInterval > 0 {
		s.Reconcile = workers.NewReconcile(s.Members, logger, appCfg.ReconcileInterval)
	}
}
