// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	paymentstore "github.com/anketolabs/anketo/internal/app/store/payments"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/countries"
	"github.com/anketolabs/anketo/internal/app/system/timeouts"
	"github.com/anketolabs/anketo/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// settleWorker is created in Startup and stopped in Shutdown.
var settleWorker *workers.CreditSettle

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. Anketo
// starts the background credit settlement worker here.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.DBTimeoutShort,
		Medium: appCfg.DBTimeoutMedium,
		Long:   appCfg.DBTimeoutLong,
		Batch:  appCfg.DBTimeoutBatch,
	})

	users := userstore.New(deps.MongoDatabase, countries.New())
	payments := paymentstore.New(deps.MongoDatabase)

	settleWorker = workers.NewCreditSettle(users, payments, logger, appCfg.SettleInterval, appCfg.SettleHold)
	settleWorker.Start()

	logger.Info("credit settlement worker started",
		zap.Duration("interval", appCfg.SettleInterval),
		zap.Duration("hold", appCfg.SettleHold))

	return nil
}
