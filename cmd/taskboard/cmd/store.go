package cmd

import (
	"context"
	"fmt"

	"go.pilab.hu/taskboard/config"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/mongodb"
	"go.pilab.hu/taskboard/sqlstore"
)

// openStore connects the configured backend. SQL stores are migrated when migrate is set.
func openStore(ctx context.Context, migrate bool) (domain.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongoDB:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite, config.DriverPostgres:
		store, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close(ctx)
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func closeStore(store domain.Store) {
	if err := store.Close(context.Background()); err != nil {
		appLogger.Error(context.Background(), "Failed to close store", err)
	}
}
