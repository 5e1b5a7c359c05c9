// Package migration applies versioned SQL migrations with golang-migrate and
// renders DDL for tables that carry the pgentity audit envelope.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/kintsdev/pgentity"
)

// Migrator applies NNNN_name.up.sql / NNNN_name.down.sql files from dir in fsys.
type Migrator struct {
	pool      *pgxpool.Pool
	fsys      fs.FS
	dir       string
	tableName string
	logger    pgentity.Logger
}

type Option func(*Migrator)

// WithMigrationsTable overrides golang-migrate's schema_migrations table.
func WithMigrationsTable(name string) Option { return func(m *Migrator) { m.tableName = name } }

func WithLogger(l pgentity.Logger) Option { return func(m *Migrator) { m.logger = l } }

func NewMigrator(pool *pgxpool.Pool, fsys fs.FS, dir string, opts ...Option) *Migrator {
	m := &Migrator{pool: pool, fsys: fsys, dir: dir, logger: pgentity.NoopLogger{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies every pending migration. Having nothing to apply is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "up", func(mg *migrate.Migrate) error { return mg.Up() })
}

// Down rolls back steps migrations; steps <= 0 rolls back all of them.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	return m.run(ctx, "down", func(mg *migrate.Migrate) error {
		if steps <= 0 {
			return mg.Down()
		}
		return mg.Steps(-steps)
	})
}

// Version reports the applied version and whether the last migration left the schema dirty.
// A database without migrations reports version 0.
func (m *Migrator) Version(ctx context.Context) (version uint, dirty bool, err error) {
	err = m.run(ctx, "version", func(mg *migrate.Migrate) error {
		var verr error
		version, dirty, verr = mg.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		return verr
	})
	return version, dirty, err
}

func (m *Migrator) run(ctx context.Context, op string, fn func(*migrate.Migrate) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.fsys == nil {
		return migrationError(op, errors.New("no migration source"))
	}
	src, err := iofs.New(m.fsys, m.dir)
	if err != nil {
		return migrationError(op, fmt.Errorf("open source %q: %w", m.dir, err))
	}
	if m.pool == nil {
		_ = src.Close()
		return migrationError(op, errors.New("nil pool"))
	}

	db := stdlib.OpenDBFromPool(m.pool)
	drv, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: m.tableName})
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return migrationError(op, err)
	}
	mg, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		_ = src.Close()
		_ = drv.Close()
		return migrationError(op, err)
	}
	defer mg.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mg.GracefulStop <- true
		case <-done:
		}
	}()

	if err := fn(mg); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return migrationError(op, err)
	}
	m.logger.Info("migration finished", pgentity.Field{Key: "op", Value: op}, pgentity.Field{Key: "dir", Value: m.dir})
	return nil
}

func migrationError(op string, err error) error {
	return &pgentity.ORMError{Code: pgentity.ErrCodeMigration, Message: fmt.Sprintf("migration %s: %s", op, err.Error()), Internal: err}
}

// Up applies all pending migrations from dir in fsys.
func Up(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string) error {
	return NewMigrator(pool, fsys, dir).Up(ctx)
}

// Down rolls back all migrations from dir in fsys.
func Down(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string) error {
	return NewMigrator(pool, fsys, dir).Down(ctx, 0)
}
