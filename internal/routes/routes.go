package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/congo-pay/ledgerflow/internal/account"
	"github.com/congo-pay/ledgerflow/internal/config"
	"github.com/congo-pay/ledgerflow/internal/ledger"
	"github.com/congo-pay/ledgerflow/internal/middleware"
	"github.com/congo-pay/ledgerflow/internal/reconcile"
)

// Deps aggregates shared dependencies required to wire routes. Backing
// clients are optional; nil ones are reported as disabled by /healthz.
type Deps struct {
	Cfg      config.Config
	Logger   *slog.Logger
	DB       *pgxpool.Pool
	Mongo    *mongo.Client
	Cache    redis.UniversalClient
	Engine   *ledger.Engine
	Accounts *account.Service
	Outbox   *reconcile.Outbox
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Engine == nil || d.Accounts == nil || d.Outbox == nil {
		return fmt.Errorf("routes: engine, accounts and outbox are required")
	}
	if !d.Cfg.IsDev() && d.Cache == nil {
		d.Logger.Warn("redis not configured; idempotency and rate limiting are disabled", "env", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterTransactionRoutes(api, ledger.NewHandler(d.Engine), submitGuards(d)...)
	RegisterAccountRoutes(api, account.NewHandler(d.Accounts))
	RegisterReconciliationRoutes(api, reconcile.NewHandler(d.Outbox))

	return nil
}

// submitGuards are applied to POST /transactions only.
func submitGuards(d Deps) []fiber.Handler {
	if d.Cache == nil {
		return nil
	}
	return []fiber.Handler{
		middleware.SubmitRateLimit(d.Cache, d.Cfg.SubmitRateLimit, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	}
}
