package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/congo-pay/ledgerflow/internal/config"
	"github.com/congo-pay/ledgerflow/internal/infra"
	"github.com/congo-pay/ledgerflow/internal/logging"
	"github.com/congo-pay/ledgerflow/internal/reconcile"
	"github.com/congo-pay/ledgerflow/internal/server"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backends server.Backends

	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, infra.PoolOptions{
			AppName:  cfg.AppName,
			MaxConns: cfg.DBMaxConns,
		})
		if err != nil {
			fatal(logger, "connect postgres", err)
		}
		defer db.Close()
		if err := infra.EnsureSchema(ctx, db); err != nil {
			fatal(logger, "ensure schema", err)
		}
		backends.DB = db
	case config.StoreMongo:
		client, err := infra.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			fatal(logger, "connect mongo", err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("disconnect mongo", "error", err)
			}
		}()
		if err := ensureMongoIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
			fatal(logger, "ensure mongo indexes", err)
		}
		backends.Mongo = client
	default:
		logger.Warn("using in-memory stores; balances are lost on restart")
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			fatal(logger, "connect redis", err)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		backends.Cache = cache
	}

	srv, err := server.New(cfg, backends, logger)
	if err != nil {
		fatal(logger, "build server", err)
	}
	srv.Start(ctx)

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return
	}

	logger.Info("server exited cleanly")
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if err := transaction.NewMongoStore(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	return reconcile.NewMongoStore(db).EnsureIndexes(ctx)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
