// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Anketo.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: ANKETO_MONGO_URI, ANKETO_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "anketo", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "anketo-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@anketo.com", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Anketo", Desc: "From display name"},

	{Name: "site_name", Default: "Anketo", Desc: "Site name used in emails"},

	// Password reset settings
	{Name: "reset_expiry", Default: "15m", Desc: "Password reset code expiry (e.g., 15m, 1h)"},

	// Credit settlement worker settings
	{Name: "settle_interval", Default: "1h", Desc: "How often the credit settlement sweep runs"},
	{Name: "settle_hold", Default: "168h", Desc: "How long a waiting payment matures before settlement"},

	// Rate limiting for auth endpoints
	{Name: "auth_rate_limit", Default: 10, Desc: "Max auth requests per client per window"},
	{Name: "auth_rate_window", Default: "1m", Desc: "Rate limit window for auth endpoints"},

	// Handler database deadlines ("0s" keeps the built-in default)
	{Name: "db_timeout_short", Default: "0s", Desc: "Deadline for single-document handler operations"},
	{Name: "db_timeout_medium", Default: "0s", Desc: "Deadline for list queries and multi-step writes"},
	{Name: "db_timeout_long", Default: "0s", Desc: "Deadline for report fan-outs"},
	{Name: "db_timeout_batch", Default: "0s", Desc: "Deadline for mail blasts and bulk work"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ANKETO", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		SiteName: appValues.String("site_name"),

		ResetExpiry: appValues.Duration("reset_expiry", 15*time.Minute),

		// Credit settlement
		SettleInterval: appValues.Duration("settle_interval", time.Hour),
		SettleHold:     appValues.Duration("settle_hold", 7*24*time.Hour),

		// Rate limiting
		AuthRateLimit:  appValues.Int("auth_rate_limit"),
		AuthRateWindow: appValues.Duration("auth_rate_window", time.Minute),

		// Handler deadlines
		DBTimeoutShort:  appValues.Duration("db_timeout_short", 0),
		DBTimeoutMedium: appValues.Duration("db_timeout_medium", 0),
		DBTimeoutLong:   appValues.Duration("db_timeout_long", 0),
		DBTimeoutBatch:  appValues.Duration("db_timeout_batch", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Anketo validates the MongoDB URI format to catch configuration errors
// early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters")
	}

	if appCfg.SettleInterval <= 0 {
		return fmt.Errorf("settle_interval must be positive")
	}
	if appCfg.SettleHold < 0 {
		return fmt.Errorf("settle_hold cannot be negative")
	}

	return nil
}
