// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (SUPPORTDESK_*),
// configuration files, or command-line flags (loaded in LoadConfig).
// WAFFLE's CoreConfig covers ports, TLS, logging and CORS.
type AppConfig struct {
	// Storage backend: "mongo" or "memory"
	Backend       string
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: supportdesk-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Bearer tokens for /api clients
	JWTSecret string
	JWTTTL    time.Duration

	// Optional shared services; blank disables them
	RedisAddr string // shared login rate limiter
	AMQPURL   string // domain event publisher
	AMQPQueue string

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth callbacks (e.g., "https://desk.example.com")
	BaseURL string

	// Background repair of profile/project drift
	ReconcileInterval time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Login attempts per IP per minute
	LoginRateLimit int

	// Bootstrap administrator (created or promoted on startup when set)
	AdminEmail    string
	AdminPassword string
}
