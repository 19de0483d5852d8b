// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, and request limits. AppConfig is where
// everything specific to Anketo lives: database connection strings,
// SMTP credentials, session settings, and the credit settlement knobs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: anketo-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@anketo.com)
	MailFromName string // From display name (e.g., Anketo)

	// SiteName appears in email subjects and bodies.
	SiteName string

	// Password reset code lifetime.
	ResetExpiry time.Duration

	// Credit settlement worker: how often the sweep runs, and how long a
	// waiting payment must sit before it is matured into spendable credit.
	SettleInterval time.Duration
	SettleHold     time.Duration

	// Rate limiting for the unauthenticated auth endpoints
	// (signup, login, password reset).
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Context deadlines for handler database work. A zero value keeps the
	// timeouts package default.
	DBTimeoutShort  time.Duration
	DBTimeoutMedium time.Duration
	DBTimeoutLong   time.Duration
	DBTimeoutBatch  time.Duration
}
