package pgentity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newPool opens the pool described by cfg. Zero-valued sizes and durations keep
// the pgx defaults; a statement cache capacity switches pgx to cached statements.
func newPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	return openPool(ctx, cfg.ConnString(), func(conf *pgxpool.Config) {
		applyPoolSize(conf, cfg.MaxConnections)
		if cfg.MinConnections > 0 {
			conf.MinConns = cfg.MinConnections
		}
		if cfg.MaxConnLifetime > 0 {
			conf.MaxConnLifetime = cfg.MaxConnLifetime
		}
		if cfg.MaxConnIdleTime > 0 {
			conf.MaxConnIdleTime = cfg.MaxConnIdleTime
		}
		if cfg.HealthCheckPeriod > 0 {
			conf.HealthCheckPeriod = cfg.HealthCheckPeriod
		}
		if cfg.StatementCacheCapacity > 0 {
			conf.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
			conf.ConnConfig.StatementCacheCapacity = cfg.StatementCacheCapacity
		}
	})
}

func newPoolFromConnString(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	return ConnectPool(ctx, connString, 0)
}

// ConnectPool opens a pgx pool for connString capped at maxConnections. A value of
// zero keeps the pgx default.
func ConnectPool(ctx context.Context, connString string, maxConnections int32) (*pgxpool.Pool, error) {
	return openPool(ctx, connString, func(conf *pgxpool.Config) { applyPoolSize(conf, maxConnections) })
}

func openPool(ctx context.Context, connString string, configure func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	conf, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	configure(conf)
	return pgxpool.NewWithConfig(ctx, conf)
}

func applyPoolSize(conf *pgxpool.Config, maxConnections int32) {
	if maxConnections > 0 {
		conf.MaxConns = maxConnections
	}
}

const healthCheckTimeout = 2 * time.Second

// healthCheck pings the pool with a short deadline of its own.
func healthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("nil pool")
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return pool.Ping(ctx)
}
