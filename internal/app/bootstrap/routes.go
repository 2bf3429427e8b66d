// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/supportdesk/internal/app/features/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/features/authgoogle"
	"github.com/dalemusser/supportdesk/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/features/formconfig"
	"github.com/dalemusser/supportdesk/internal/app/features/health"
	"github.com/dalemusser/supportdesk/internal/app/features/login"
	"github.com/dalemusser/supportdesk/internal/app/features/logout"
	"github.com/dalemusser/supportdesk/internal/app/features/projects"
	"github.com/dalemusser/supportdesk/internal/app/features/sessionstream"
	"github.com/dalemusser/supportdesk/internal/app/features/team"
	"github.com/dalemusser/supportdesk/internal/app/features/tickets"
	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/supportdesk/internal/app/system/routetable"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It boots the template engine, then
// mounts every page of the route table behind its guard, the JSON API, the
// auth endpoints and static assets.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	return buildRouter(appCfg, deps, coreCfg.Env == "prod", logger)
}

// buildRouter wires handlers onto a chi router. secure marks cookies Secure.
func buildRouter(appCfg AppConfig, deps DBDeps, secure bool, logger *zap.Logger) (chi.Router, error) {
	if deps.svc == nil {
		deps.svc = &services{}
	}
	deps.svc.init(appCfg, deps, logger)
	svc := deps.svc
	set := deps.Stores

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	var tokens *auth.Tokens
	if appCfg.JWTSecret != "" {
		if tokens, err = auth.NewTokens(appCfg.JWTSecret, appCfg.JWTTTL, logger); err != nil {
			return nil, err
		}
	}

	limiter := ratelimit.NewMemoryLoginLimiter(appCfg.LoginRateLimit)
	if deps.Redis != nil {
		limiter = ratelimit.NewRedisLoginLimiter(deps.Redis, appCfg.LoginRateLimit, logger)
	}

	errLog := errorsfeature.NewErrorLogger(logger)
	guarded := func(p guard.Policy) func(http.Handler) http.Handler {
		return guard.Middleware(p, sessionMgr, svc.Roles, logger)
	}

	googleH := authgoogle.NewHandler(set.Profiles, svc.Members, sessionMgr, svc.Broker, svc.Audit,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, strings.TrimRight(appCfg.BaseURL, "/"),
		[]byte(appCfg.SessionKey), secure, logger)
	loginH := &login.Handler{
		Profiles:      set.Profiles,
		Activator:     svc.Members,
		SessionMgr:    sessionMgr,
		Broker:        svc.Broker,
		Tokens:        tokens,
		Limiter:       limiter,
		ErrLog:        errLog,
		AuditLog:      svc.Audit,
		Log:           logger,
		GoogleEnabled: googleH.IsConfigured(),
	}
	dashH := dashboard.NewHandler(set, errLog, logger)
	ticketsH := tickets.NewHandler(set, svc.Tickets, svc.Roles, errLog, logger)
	teamH := team.NewHandler(set, errLog, logger)
	projectsH := projects.NewHandler(svc.Members, errLog, logger)
	formH := formconfig.NewHandler(set.FormConfigs, svc.Audit, errLog, logger)
	streamH := sessionstream.NewHandler(svc.Broker, svc.Roles, logger)
	auditH := auditlog.NewHandler(set.Audit, set.Profiles, errLog, logger)

	pages := map[string]http.Handler{
		routetable.PageLogin:               login.LoginRoutes(loginH),
		routetable.PageForgotPassword:      login.ForgotRoutes(loginH),
		routetable.PageAdminDashboard:      dashboard.Routes(dashH.ServeAdmin),
		routetable.PageAdminTickets:        tickets.ListRoutes(ticketsH, tickets.AdminTickets),
		routetable.PageProjects:            projects.PageRoutes(projectsH),
		routetable.PageFormConfig:          formconfig.PageRoutes(formH),
		routetable.PageProjectTickets:      tickets.ListRoutes(ticketsH, tickets.ProjectTickets),
		routetable.PageAuditLog:            auditlog.Routes(auditH),
		routetable.PageClientHeadDashboard: dashboard.Routes(dashH.ServeClientHead),
		routetable.PageClientHeadTickets:   tickets.ListRoutes(ticketsH, tickets.ClientHeadTickets),
		routetable.PageClientDashboard:     dashboard.Routes(dashH.ServeClient),
		routetable.PageClientTickets:       tickets.ListRoutes(ticketsH, tickets.ClientTickets),
		routetable.PageManagerDashboard:    dashboard.Routes(dashH.ServeManager),
		routetable.PageManagerTickets:      tickets.ListRoutes(ticketsH, tickets.ManagerTickets),
		routetable.PageTeamEmployee:        team.Routes(teamH),
		routetable.PageEmployeeDashboard:   dashboard.Routes(dashH.ServeEmployee),
		routetable.PageEmployeeTickets:     tickets.ListRoutes(ticketsH, tickets.EmployeeTickets),
		routetable.PageTicketing:           tickets.NewRoutes(ticketsH),
		routetable.PageTicketDetail:        tickets.DetailRoutes(ticketsH),
	}

	r := chi.NewRouter()

	// Identity: a bearer token wins over the cookie session.
	if tokens != nil {
		r.Use(tokens.LoadBearer)
	}
	r.Use(sessionMgr.LoadSession)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", health.Routes(health.NewHandler(set.Health, deps.Backend, logger)))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Pages, each behind the guard of its route-table entry.
	for _, rt := range routetable.Routes() {
		h, ok := pages[rt.Page]
		if !ok {
			return nil, fmt.Errorf("no handler for page %q", rt.Page)
		}
		mw := guarded(rt.Policy)
		r.Route(rt.Path, func(sr chi.Router) {
			sr.Use(mw)
			sr.Mount("/", h)
		})
	}

	// Authentication
	r.Mount("/logout", logout.Routes(logout.NewHandler(sessionMgr, svc.Broker, svc.Audit, logger), sessionMgr))
	r.Mount("/auth/google", authgoogle.Routes(googleH))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// JSON API
	r.Route("/api", func(api chi.Router) {
		api.Post("/token", loginH.HandleToken)

		api.Group(func(a chi.Router) {
			a.Use(guarded(guard.RequireRole(models.RoleAdmin)))
			a.Mount("/projects", projects.APIRoutes(projectsH))
			a.Mount("/blocked-emails", projects.BlockedRoutes(projectsH))
			a.Mount("/form-config", formconfig.APIRoutes(formH))
			a.Mount("/audit-events", auditlog.APIRoutes(auditH))
		})
		api.Group(func(a chi.Router) {
			a.Use(guarded(guard.AnyRole{models.RoleAdmin, models.RoleProjectManager}))
			a.Mount("/kpi", team.APIRoutes(teamH))
		})
		api.Group(func(a chi.Router) {
			a.Use(guarded(guard.Authenticated))
			a.Mount("/session", sessionstream.Routes(streamH))
		})

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			apierr.Write(w, http.StatusNotFound, "not found")
		})
	})

	// Anything else goes to the caller's landing page.
	fallback := func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, routetable.Fallback(auth.State(r).Authenticated), http.StatusSeeOther)
	}
	r.Get("/", fallback)
	r.NotFound(fallback)

	return r, nil
}
