package pgentity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the entry point: it owns the pool used by QuickSave and repositories and
// carries the logger, metrics and audit hook applied to every statement.
// A DB is safe for concurrent use.
type DB struct {
	pool    *pgxpool.Pool
	exec    Executor
	config  *Config
	logger  Logger
	metrics Metrics
	opts    options
}

// New creates a new DB, initializing the pgx pool from config
func New(config *Config, opts ...Option) (*DB, error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}
	pool, err := newPool(context.Background(), config)
	if err != nil {
		return nil, err
	}
	cfgOpts := []Option{WithLogMode(config.LogMode())}
	if config.SlowQueryThreshold > 0 {
		cfgOpts = append(cfgOpts, WithSlowQueryThreshold(config.SlowQueryThreshold))
	}
	db := newDB(pool, append(cfgOpts, opts...)...)
	db.config = config
	return db, nil
}

// NewWithConnString creates a new DB from a full pgx connection string
func NewWithConnString(connString string, opts ...Option) (*DB, error) {
	pool, err := newPoolFromConnString(context.Background(), connString)
	if err != nil {
		return nil, err
	}
	return newDB(pool, opts...), nil
}

// NewWithPool wraps an existing pool. Close closes it.
func NewWithPool(pool *pgxpool.Pool, opts ...Option) *DB { return newDB(pool, opts...) }

// NewWithExecutor builds a DB whose default executor is exec, for callers that
// manage their own connection. Pool returns nil and Close is a no-op.
func NewWithExecutor(exec Executor, opts ...Option) *DB {
	db := newDB(nil, opts...)
	db.exec = exec
	return db
}

func newDB(pool *pgxpool.Pool, opts ...Option) *DB {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	db := &DB{pool: pool, logger: o.logger, metrics: o.metrics, opts: o}
	if pool != nil {
		db.exec = pool
	}
	return db
}

// Close gracefully closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Health performs a simple health check against the database
func (db *DB) Health(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return healthCheck(ctx, db.pool)
}

// Pool exposes the underlying pgx pool (read-only)
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// Executor returns the executor QuickSave and repositories use by default.
func (db *DB) Executor() Executor { return db.exec }

// Config returns the configuration the DB was built from, or nil.
func (db *DB) Config() *Config { return db.config }

// ReportPoolStats pushes the pool's current connection counts to Metrics.
func (db *DB) ReportPoolStats() {
	if db.pool == nil {
		return
	}
	st := db.pool.Stat()
	db.metrics.ConnectionCount(st.AcquiredConns(), st.IdleConns())
}

// now is the client clock used for last_updated_time, always in UTC.
func (db *DB) now() time.Time { return db.opts.clock().UTC() }
