package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	"go.uber.org/zap"

	"github.com/rl1809/vending-machine/internal/adapter/storage"
	"github.com/rl1809/vending-machine/internal/config"
	"github.com/rl1809/vending-machine/internal/port"
)

func noopClose() error { return nil }

// openStore builds the state store selected by cfg.Driver. The returned
// func releases whatever the store owns; the shared Redis client is closed
// by the caller.
func openStore(ctx context.Context, cfg config.StorageConfig, rdb *redis.Client, logger *zap.Logger) (port.StateStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory state store, state is lost on restart")
		return storage.NewMemoryAdapter(), noopClose, nil

	case config.DriverRedis:
		return storage.NewRedisAdapter(rdb, cfg.Redis.KeyPrefix+cfg.MachineID+":"), noopClose, nil

	case config.DriverMySQL:
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, cfg.GetPingTimeout())
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		adapter := storage.NewMySQLAdapter(db, cfg.MachineID)
		if err := adapter.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("connected to mysql")
		return adapter, db.Close, nil

	case config.DriverSQLite, config.DriverPostgres:
		var dialect schema.Dialect = pgdialect.New()
		if cfg.Driver == config.DriverSQLite {
			dialect = sqlitedialect.New()
		}
		db, err := sql.Open(cfg.GetDriver(), cfg.GetServer())
		if err != nil {
			return nil, nil, err
		}
		if cfg.Driver == config.DriverSQLite {
			db.SetMaxOpenConns(1)
		}
		client, err := persistence.New(cfg, db, dialect)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		adapter := storage.NewBunAdapter(client.DB(), cfg.MachineID)
		if err := adapter.EnsureSchema(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logger.Info("connected to sql store", zap.String("driver", cfg.Driver))
		return adapter, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
