package server

import (
	"fmt"

	"github.com/congo-pay/ledgerflow/internal/account"
	"github.com/congo-pay/ledgerflow/internal/config"
	"github.com/congo-pay/ledgerflow/internal/reconcile"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

type stores struct {
	accounts  account.Store
	records   transaction.Store
	reconcile reconcile.Store
}

func buildStores(cfg config.Config, b Backends) (stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if b.DB == nil {
			return stores{}, fmt.Errorf("postgres pool is required when STORE_DRIVER=%s", cfg.StoreDriver)
		}
		return stores{
			accounts:  account.NewPostgresStore(b.DB),
			records:   transaction.NewPostgresStore(b.DB),
			reconcile: reconcile.NewPostgresStore(b.DB),
		}, nil
	case config.StoreMongo:
		if b.Mongo == nil {
			return stores{}, fmt.Errorf("mongo client is required when STORE_DRIVER=%s", cfg.StoreDriver)
		}
		db := b.Mongo.Database(cfg.MongoDatabase)
		return stores{
			accounts:  account.NewMongoStore(db),
			records:   transaction.NewMongoStore(db),
			reconcile: reconcile.NewMongoStore(db),
		}, nil
	case config.StoreMemory, "":
		return stores{
			accounts:  account.NewMemoryStore(),
			records:   transaction.NewMemoryStore(),
			reconcile: reconcile.NewMemoryStore(),
		}, nil
	default:
		return stores{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
