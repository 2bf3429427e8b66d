// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / user_id: the profile key (_id in "users"); a uid or a temp_ id
//   - ActorID / actor_id: the profile key of whoever performed the action

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/supportdesk/internal/app/store/audit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, forced sign-out).
	// Values: "all" (store + zap), "db" (store only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin action events (projects, members, block list, tickets).
	// Values: "all" (store + zap), "db" (store only), "log" (zap only), "off" (disabled)
	Admin string
}

// Sink persists audit events.
type Sink interface {
	Log(ctx context.Context, e audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to the audit store and to structured logs (via zap).
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type requestInfo struct {
	ip        string
	userAgent string
}

type ctxKey struct{}

// WithRequest stores the caller's IP and user agent on ctx so events logged
// further down (for example by the membership manager) carry them.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestInfo{ip: getClientIP(r), userAgent: r.UserAgent()})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.ProjectID != "" {
		fields = append(fields, zap.String("project_id", event.ProjectID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if info, ok := ctx.Value(ctxKey{}).(requestInfo); ok {
		if event.IP == "" {
			event.IP = info.ip
		}
		if event.UserAgent == "" {
			event.UserAgent = info.userAgent
		}
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, email, method string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"auth_method": method,
			"email":       email,
		},
	})
}

// LoginFailedUserNotFound logs a failed login due to unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        userID,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedUserDisabled logs a failed login due to a disabled profile.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserDisabled,
		UserID:        userID,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		FailureReason: "user disabled",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedRateLimit logs a login rejected by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		FailureReason: "rate limit exceeded",
		Details:       map[string]string{"email": email},
	})
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// ForcedSignOut logs a session ended because the profile is missing or disabled.
func (l *Logger) ForcedSignOut(ctx context.Context, userID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventForcedSignOut,
		UserID:        userID,
		Success:       true,
		FailureReason: reason,
	})
}

// PasswordResetRequested logs a forgot-password submission.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordResetRequested,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// AccountActivated logs a pending profile becoming active on first login.
func (l *Logger) AccountActivated(ctx context.Context, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventAccountActivated,
		UserID:    userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// --- Admin Events ---

func (l *Logger) admin(ctx context.Context, eventType, actorID, userID, projectID string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   actorID,
		UserID:    userID,
		ProjectID: projectID,
		Success:   true,
		Details:   details,
	})
}

// ProjectCreated logs a new project.
func (l *Logger) ProjectCreated(ctx context.Context, actorID, projectID, name string) {
	l.admin(ctx, audit.EventProjectCreated, actorID, "", projectID, map[string]string{"name": name})
}

// ProjectRenamed logs a rename along with how many denormalized copies were rewritten.
func (l *Logger) ProjectRenamed(ctx context.Context, actorID, projectID, oldName, newName string, profiles, tickets int64) {
	l.admin(ctx, audit.EventProjectRenamed, actorID, "", projectID, map[string]string{
		"old_name":         oldName,
		"new_name":         newName,
		"profiles_updated": strconv.FormatInt(profiles, 10),
		"tickets_updated":  strconv.FormatInt(tickets, 10),
	})
}

// ProjectDeleted logs a project deletion.
func (l *Logger) ProjectDeleted(ctx context.Context, actorID, projectID, name string, members int) {
	l.admin(ctx, audit.EventProjectDeleted, actorID, "", projectID, map[string]string{
		"name":    name,
		"members": strconv.Itoa(members),
	})
}

// MemberAdded logs a member joining a project.
func (l *Logger) MemberAdded(ctx context.Context, actorID, projectID, userID, email, role string) {
	l.admin(ctx, audit.EventMemberAdded, actorID, userID, projectID, map[string]string{
		"email": email,
		"role":  role,
	})
}

// MemberUpdated logs a member edit and the number of projects it was propagated to.
func (l *Logger) MemberUpdated(ctx context.Context, actorID, projectID, userID, fieldsChanged string, projects int) {
	l.admin(ctx, audit.EventMemberUpdated, actorID, userID, projectID, map[string]string{
		"fields_changed": fieldsChanged,
		"projects":       strconv.Itoa(projects),
	})
}

// MemberRemoved logs a member leaving a project.
func (l *Logger) MemberRemoved(ctx context.Context, actorID, projectID, userID, email string) {
	l.admin(ctx, audit.EventMemberRemoved, actorID, userID, projectID, map[string]string{"email": email})
}

// ProfileDeleted logs profile documents removed because their email left every project.
func (l *Logger) ProfileDeleted(ctx context.Context, actorID, email string, count int64) {
	l.admin(ctx, audit.EventProfileDeleted, actorID, "", "", map[string]string{
		"email": email,
		"count": strconv.FormatInt(count, 10),
	})
}

// EmailBlocked logs an addition to the block list.
func (l *Logger) EmailBlocked(ctx context.Context, actorID, email string) {
	l.admin(ctx, audit.EventEmailBlocked, actorID, "", "", map[string]string{"email": email})
}

// EmailUnblocked logs a removal from the block list.
func (l *Logger) EmailUnblocked(ctx context.Context, actorID, email string) {
	l.admin(ctx, audit.EventEmailUnblocked, actorID, "", "", map[string]string{"email": email})
}

// FormConfigUpdated logs a replacement of the ticket form.
func (l *Logger) FormConfigUpdated(ctx context.Context, actorID string, fields, modules int) {
	l.admin(ctx, audit.EventFormConfigUpdated, actorID, "", "", map[string]string{
		"fields":  strconv.Itoa(fields),
		"modules": strconv.Itoa(modules),
	})
}

// TicketCreated logs a new ticket.
func (l *Logger) TicketCreated(ctx context.Context, actorID, ticketID, project string) {
	l.admin(ctx, audit.EventTicketCreated, actorID, "", "", map[string]string{
		"ticket_id": ticketID,
		"project":   project,
	})
}

// TicketAssigned logs an assignment change.
func (l *Logger) TicketAssigned(ctx context.Context, actorID, ticketID, assignee string) {
	l.admin(ctx, audit.EventTicketAssigned, actorID, "", "", map[string]string{
		"ticket_id": ticketID,
		"assignee":  assignee,
	})
}

// TicketResolved logs a ticket moving to Resolved.
func (l *Logger) TicketResolved(ctx context.Context, actorID, ticketID string) {
	l.admin(ctx, audit.EventTicketResolved, actorID, "", "", map[string]string{"ticket_id": ticketID})
}
