package main

import (
	"context"
	"fmt"
	"log/slog"

	"hostdesk/internal/app/middleware"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/infra/config"
	gormdb "hostdesk/internal/infra/db/gorm"
	mongodb "hostdesk/internal/infra/db/mongo"
	"hostdesk/internal/infra/feeds"
	"hostdesk/internal/infra/obs"
	"hostdesk/internal/infra/outbox"
	"hostdesk/internal/infra/storage/memory"
)

// storage is everything one driver contributes to the process.
type storage struct {
	factory     uow.Factory
	idempotency middleware.IdempotencyStore
	relay       outbox.Store
	inbox       func(consumer string) feeds.Inbox
	checks      map[string]obs.Check
	migrate     func(ctx context.Context) error
	close       func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		inbox := memory.NewInbox()
		logger.Warn("memory storage selected, state is lost on exit")
		return &storage{
			factory:     memory.Factory{Store: store},
			idempotency: memory.NewIdempotencyStore(),
			relay:       store.Outbox(),
			inbox:       func(string) feeds.Inbox { return inbox },
			checks:      map[string]obs.Check{},
			migrate:     func(context.Context) error { return nil },
			close:       func(context.Context) error { return nil },
		}, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := gormdb.Open(cfg.StorageDriver, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, err
		}
		return &storage{
			factory:     gormdb.Factory{DB: db},
			idempotency: &gormdb.IdempotencyStore{DB: db},
			relay:       &gormdb.OutboxStore{DB: db},
			inbox: func(consumer string) feeds.Inbox {
				return &gormdb.Inbox{DB: db, Consumer: consumer}
			},
			checks: map[string]obs.Check{
				cfg.StorageDriver: func(ctx context.Context) error { return gormdb.Ping(ctx, db) },
			},
			migrate: func(ctx context.Context) error { return gormdb.Migrate(ctx, db) },
			close: func(context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		}, nil

	case config.DriverMongo:
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		return &storage{
			factory:     mongodb.Factory{DB: client.DB},
			idempotency: mongodb.NewIdempotencyStore(client.DB),
			relay:       mongodb.NewOutboxStore(client.DB),
			inbox: func(consumer string) feeds.Inbox {
				return mongodb.NewInbox(client.DB, consumer)
			},
			checks:  map[string]obs.Check{"mongo": client.Ping},
			migrate: client.EnsureIndexes,
			close:   client.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
