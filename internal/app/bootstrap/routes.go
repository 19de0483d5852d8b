// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	adminfeature "github.com/anketolabs/anketo/internal/app/features/admin"
	campaignsfeature "github.com/anketolabs/anketo/internal/app/features/campaigns"
	healthfeature "github.com/anketolabs/anketo/internal/app/features/health"
	loginfeature "github.com/anketolabs/anketo/internal/app/features/login"
	logoutfeature "github.com/anketolabs/anketo/internal/app/features/logout"
	passwordresetfeature "github.com/anketolabs/anketo/internal/app/features/passwordreset"
	profilefeature "github.com/anketolabs/anketo/internal/app/features/profile"
	signupfeature "github.com/anketolabs/anketo/internal/app/features/signup"
	campaignstore "github.com/anketolabs/anketo/internal/app/store/campaigns"
	paymentstore "github.com/anketolabs/anketo/internal/app/store/payments"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"github.com/anketolabs/anketo/internal/app/system/countries"
	"github.com/anketolabs/anketo/internal/app/system/mailer"
	"github.com/anketolabs/anketo/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The router mounts one feature router
// per application area; the session middleware runs globally so every
// handler can see the current user via auth.CurrentUser(r).
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	users := userstore.New(deps.MongoDatabase, countries.New())
	campaigns := campaignstore.New(deps.MongoDatabase)
	payments := paymentstore.New(deps.MongoDatabase)

	mail := mailer.New(
		appCfg.MailSMTPHost,
		appCfg.MailSMTPPort,
		appCfg.MailSMTPUser,
		appCfg.MailSMTPPass,
		appCfg.MailFrom,
		appCfg.MailFromName,
		logger,
	)

	// One limiter per unauthenticated auth surface so a burst against
	// login does not starve signup or password reset.
	signupLimiter := ratelimit.New(appCfg.AuthRateLimit, appCfg.AuthRateWindow)
	loginLimiter := ratelimit.New(appCfg.AuthRateLimit, appCfg.AuthRateWindow)
	resetLimiter := ratelimit.New(appCfg.AuthRateLimit, appCfg.AuthRateWindow)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	signupHandler := signupfeature.NewHandler(users, logger)
	r.Mount("/signup", signupfeature.Routes(signupHandler, signupLimiter))

	loginHandler := loginfeature.NewHandler(users, sessionMgr, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler, loginLimiter))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	resetHandler := passwordresetfeature.NewHandler(users, mail, appCfg.SiteName, appCfg.ResetExpiry, logger)
	r.Mount("/password-reset", passwordresetfeature.Routes(resetHandler, resetLimiter))

	// Member area
	profileHandler := profilefeature.NewHandler(users, payments, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler))

	campaignsHandler := campaignsfeature.NewHandler(campaigns, users, logger)
	r.Mount("/campaigns", campaignsfeature.Routes(campaignsHandler))

	// Admin area
	adminHandler := adminfeature.NewHandler(campaigns, users, payments, mail, appCfg.SiteName, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler))

	return r, nil
}
