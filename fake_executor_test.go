package pgentity

import (
	"context"
	"errors"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeCall struct {
	sql  string
	args []any
}

// fakeResult is one canned response: rows for Query, the first row for QueryRow.
type fakeResult struct {
	fields []string
	rows   [][]any
	err    error
}

// fakeExec replays results in order and records every statement it receives.
type fakeExec struct {
	results []fakeResult
	calls   []fakeCall
}

func (f *fakeExec) next(sql string, args []any) fakeResult {
	f.calls = append(f.calls, fakeCall{sql: sql, args: args})
	if len(f.results) == 0 {
		return fakeResult{}
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

func (f *fakeExec) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r := f.next(sql, args)
	return pgconn.CommandTag{}, r.err
}

func (f *fakeExec) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	r := f.next(sql, args)
	if r.err != nil {
		return nil, r.err
	}
	return &fakeRows{rows: r.rows, fields: r.fields, i: -1}, nil
}

func (f *fakeExec) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	r := f.next(sql, args)
	if r.err != nil {
		return fakeRow{err: r.err}
	}
	if len(r.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{vals: r.rows[0]}
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignAll(dest, r.vals)
}

func assignAll(dest, vals []any) error {
	if len(dest) != len(vals) {
		return errors.New("fake: dest/value count mismatch")
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		if vals[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		dv.Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

type fakeRows struct {
	rows   [][]any
	fields []string
	i      int
}

func (r *fakeRows) Values() ([]any, error) {
	if r.i < 0 || r.i >= len(r.rows) {
		return nil, errors.New("eof")
	}
	return r.rows[r.i], nil
}
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.fields))
	for i, n := range r.fields {
		out[i] = pgconn.FieldDescription{Name: n}
	}
	return out
}
func (r *fakeRows) Next() bool                    { r.i++; return r.i < len(r.rows) }
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) Close()                        {}
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }
func (r *fakeRows) Scan(dest ...any) error        { return assignAll(dest, r.rows[r.i]) }
