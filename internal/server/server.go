package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/congo-pay/ledgerflow/internal/account"
	"github.com/congo-pay/ledgerflow/internal/config"
	"github.com/congo-pay/ledgerflow/internal/ledger"
	"github.com/congo-pay/ledgerflow/internal/middleware"
	"github.com/congo-pay/ledgerflow/internal/notification"
	"github.com/congo-pay/ledgerflow/internal/reconcile"
	"github.com/congo-pay/ledgerflow/internal/routes"
)

// Backends are the connected clients the server may use. Only the one
// matching the configured store driver is required; Cache is optional.
type Backends struct {
	DB    *pgxpool.Pool
	Mongo *mongo.Client
	Cache redis.UniversalClient
}

// Server wraps the Fiber application and the background work it owns.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	engine *ledger.Engine
	worker *reconcile.Worker
	logger *slog.Logger
}

// New builds stores for the configured driver, the ledger engine and the
// reconciliation worker, then delegates route wiring to routes.Setup.
func New(cfg config.Config, b Backends, logger *slog.Logger) (*Server, error) {
	st, err := buildStores(cfg, b)
	if err != nil {
		return nil, err
	}

	publisher := buildPublisher(cfg, b, logger)
	async := notification.NewAsync(publisher, logger.With("component", "publisher"), cfg.PublishWorkers, cfg.PublishTimeout)
	outbox := reconcile.NewOutbox(st.reconcile, logger.With("component", "reconcile"))

	engine := ledger.New(st.accounts, st.records, async, outbox, logger.With("component", "ledger"),
		ledger.WithPersistTimeout(cfg.PersistTimeout),
		ledger.WithCompensationTimeout(cfg.CompensateTimeout),
	)
	worker := reconcile.NewWorker(st.reconcile, st.records, async, logger.With("component", "reconcile"), reconcile.WorkerConfig{
		Interval:    cfg.ReconcileInterval,
		BaseBackoff: cfg.ReconcileBackoff,
		MaxAttempts: cfg.ReconcileAttempts,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	if err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		Logger:   logger,
		DB:       b.DB,
		Mongo:    b.Mongo,
		Cache:    b.Cache,
		Engine:   engine,
		Accounts: account.NewService(st.accounts),
		Outbox:   outbox,
	}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, engine: engine, worker: worker, logger: logger}, nil
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start launches the reconciliation worker. It stops when ctx is done or on Shutdown.
func (s *Server) Start(ctx context.Context) {
	s.worker.Start(ctx)
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, then stops the worker and drains
// pending publishes.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := s.worker.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reconcile worker: %w", err))
	}
	if err := s.engine.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}
	return errors.Join(errs...)
}

func buildPublisher(cfg config.Config, b Backends, logger *slog.Logger) notification.Publisher {
	pubs := notification.Multi{notification.NewLoggerPublisher(logger)}
	if b.Cache != nil {
		pubs = append(pubs, notification.NewRedisPublisher(b.Cache, cfg.NotifyChannel))
	}
	return pubs
}
