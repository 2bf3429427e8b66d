// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the support desk.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SUPPORTDESK_MONGO_URI, SUPPORTDESK_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "backend", Default: "mongo", Desc: "Storage backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "supportdesk", Desc: "MongoDB database name"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "supportdesk-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	{Name: "jwt_secret", Default: "", Desc: "HS256 secret for API bearer tokens (blank disables them)"},
	{Name: "jwt_ttl", Default: "12h", Desc: "API bearer token lifetime"},

	{Name: "redis_addr", Default: "", Desc: "Redis address for the shared login rate limiter (blank uses memory)"},
	{Name: "amqp_url", Default: "", Desc: "RabbitMQ URL for domain events (blank disables publishing)"},
	{Name: "amqp_queue", Default: "supportdesk.events", Desc: "RabbitMQ queue for domain events"},

	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL for OAuth callbacks"},

	{Name: "reconcile_interval", Default: "10m", Desc: "How often profile/project drift is repaired (0 disables)"},

	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts allowed per IP per minute"},

	{Name: "admin_email", Default: "", Desc: "Email of the bootstrap admin (creates or promotes on startup)"},
	{Name: "admin_password", Default: "", Desc: "Password for a newly created bootstrap admin"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, in order of precedence, flags,
// environment variables (WAFFLE_* for core, SUPPORTDESK_* for app),
// config files and defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SUPPORTDESK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		Backend:       appValues.String("backend"),
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", 12*time.Hour),

		RedisAddr: appValues.String("redis_addr"),
		AMQPURL:   appValues.String("amqp_url"),
		AMQPQueue: appValues.String("amqp_queue"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		BaseURL:            appValues.String("base_url"),

		ReconcileInterval: appValues.Duration("reconcile_interval", 10*time.Minute),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		LoginRateLimit: appValues.Int("login_rate_limit"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked before connecting so a typo fails fast. A
// bootstrap admin without a password is rejected because the account could
// never sign in with a password.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.Backend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case BackendMemory:
		if coreCfg.Env == "prod" {
			logger.Warn("memory backend in prod; data is lost on restart")
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.Backend)
	}

	if appCfg.AdminEmail != "" && appCfg.AdminPassword == "" {
		return fmt.Errorf("admin_email requires admin_password")
	}
	if appCfg.JWTSecret != "" && len(appCfg.JWTSecret) < 16 {
		return fmt.Errorf("jwt_secret must be at least 16 bytes")
	}
	return nil
}
