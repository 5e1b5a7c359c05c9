package pgentity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor runs statements. *pgxpool.Pool, *pgx.Conn and pgx.Tx all satisfy it.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// fetchOne builds stmt, runs it on exec and scans the single returned row into dest.
// It returns the SQL that was sent. Build, bind and driver errors are returned as they are.
func (db *DB) fetchOne(ctx context.Context, exec Executor, stmt Statement, dest ...any) (string, error) {
	query, args, err := stmt.Build()
	if err != nil {
		return "", err
	}
	db.logStatement(query, args)
	started := time.Now()
	err = exec.QueryRow(ctx, query, args...).Scan(dest...)
	db.observe(query, args, time.Since(started), err)
	return query, err
}

// fetchAll builds stmt, runs it on exec and calls scan once per row.
func (db *DB) fetchAll(ctx context.Context, exec Executor, stmt Statement, scan func(pgx.Rows) error) error {
	query, args, err := stmt.Build()
	if err != nil {
		return err
	}
	db.logStatement(query, args)
	started := time.Now()
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		db.observe(query, args, time.Since(started), err)
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err = scan(rows); err != nil {
			break
		}
	}
	if err == nil {
		err = rows.Err()
	}
	db.observe(query, args, time.Since(started), err)
	return err
}

func (db *DB) logStatement(query string, args []any) {
	if db.opts.logMode < LogDebug {
		return
	}
	db.logger.Debug("statement", Field{Key: "stmt", Value: db.renderStatement(query, args)}, Field{Key: "args", Value: len(args)})
}

func (db *DB) observe(query string, args []any, elapsed time.Duration, err error) {
	db.metrics.QueryDuration(elapsed, query)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		code, ok := Classify(err)
		name := "unknown"
		if ok {
			name = code.String()
		}
		db.metrics.ErrorCount(name)
		if db.opts.logMode >= LogError {
			db.logger.Error("statement failed",
				Field{Key: "stmt", Value: db.renderStatement(query, args)},
				Field{Key: "error", Value: err},
				Field{Key: "duration", Value: elapsed},
			)
		}
		return
	}
	if db.opts.slowThreshold > 0 && elapsed >= db.opts.slowThreshold && db.opts.logMode >= LogWarn {
		db.logger.Warn("slow_query",
			Field{Key: "stmt", Value: db.renderStatement(query, args)},
			Field{Key: "duration", Value: elapsed},
		)
	}
}

func (db *DB) renderStatement(query string, args []any) string {
	if db.opts.maskParams {
		return query
	}
	return inlineSQL(query, args)
}
