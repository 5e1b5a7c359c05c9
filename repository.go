package pgentity

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	pgxv5 "github.com/jackc/pgx/v5"
	core "github.com/kintsdev/pgentity/internal/core"
)

// TableNamer lets an entity override the derived table name.
type TableNamer interface {
	TableName() string
}

type activityMode int

const (
	activityAll activityMode = iota
	activityOnlyActive
	activityOnlyInactive
)

// PageRequest describes pagination and ordering
type PageRequest struct {
	Limit   int
	Offset  int
	OrderBy string
}

// Page is a page of results together with the unpaged total.
type Page[E any] struct {
	Items  []E
	Total  int64
	Limit  int
	Offset int
}

// Repository reads audited entities of type T. T is a struct embedding Envelope
// whose domain fields carry db tags; *T implements Entity.
type Repository[T any, PT interface {
	*T
	Entity
}] struct {
	db      *DB
	exec    Executor
	mode    activityMode
	table   string
	mapping core.StructMapping
}

// NewRepository creates a repository on the DB's default executor.
func NewRepository[T any, PT interface {
	*T
	Entity
}](db *DB) *Repository[T, PT] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	table := core.TableName(typ)
	if tn, ok := any(PT(new(T))).(TableNamer); ok {
		table = tn.TableName()
	}
	return &Repository[T, PT]{db: db, exec: db.exec, table: table, mapping: core.StructMapper(typ)}
}

// WithExecutor returns a copy bound to exec, typically a transaction.
func (r *Repository[T, PT]) WithExecutor(exec Executor) *Repository[T, PT] {
	nr := *r
	nr.exec = exec
	return &nr
}

// OnlyActive restricts reads to rows with active = true.
func (r *Repository[T, PT]) OnlyActive() *Repository[T, PT] {
	nr := *r
	nr.mode = activityOnlyActive
	return &nr
}

// OnlyInactive restricts reads to rows with active = false.
func (r *Repository[T, PT]) OnlyInactive() *Repository[T, PT] {
	nr := *r
	nr.mode = activityOnlyInactive
	return &nr
}

// Table returns the table the repository reads from.
func (r *Repository[T, PT]) Table() string { return r.table }

// Save saves e through the repository's executor.
func (r *Repository[T, PT]) Save(ctx context.Context, e PT, user uuid.UUID) error {
	return r.db.Save(ctx, e, user, r.exec)
}

// FindOne loads the entity with the given id.
func (r *Repository[T, PT]) FindOne(ctx context.Context, id uuid.UUID) (PT, error) {
	return r.FindOneWith(ctx, id, r.exec)
}

// FindOneWith loads the entity with the given id through exec.
func (r *Repository[T, PT]) FindOneWith(ctx context.Context, id uuid.UUID, exec Executor) (PT, error) {
	exec, err := r.db.executor(exec)
	if err != nil {
		return nil, err
	}
	stmt := r.selectStatement(Eq(ColumnID, id)).Limit(1)
	var (
		found PT
		hit   bool
	)
	err = r.db.fetchAll(ctx, exec, stmt, func(rows pgxv5.Rows) error {
		e, serr := r.scan(rows)
		found, hit = e, serr == nil
		return serr
	})
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, &ORMError{Code: ErrCodeNotFound, Message: "entity not found", Internal: pgxv5.ErrNoRows, Args: []any{id}}
	}
	return found, nil
}

func (r *Repository[T, PT]) Find(ctx context.Context, conditions ...Condition) ([]PT, error) {
	return r.find(ctx, r.selectStatement(conditions...))
}

// FindNamed selects rows matching a WHERE fragment written with :name parameters.
// Slice values expand to a parenthesised list, so "owner_id IN :ids" works.
func (r *Repository[T, PT]) FindNamed(ctx context.Context, where string, named map[string]any) ([]PT, error) {
	return r.find(ctx, r.selectStatement().WhereNamed(where, named))
}

func (r *Repository[T, PT]) FindPage(ctx context.Context, page PageRequest, conditions ...Condition) (Page[PT], error) {
	total, err := r.Count(ctx, conditions...)
	if err != nil {
		return Page[PT]{}, err
	}
	stmt := r.selectStatement(conditions...)
	if page.OrderBy != "" {
		stmt.OrderBy(page.OrderBy)
	} else {
		stmt.OrderBy(ColumnCreatedTime + ", " + ColumnID)
	}
	stmt.Limit(page.Limit).Offset(page.Offset)
	items, err := r.find(ctx, stmt)
	if err != nil {
		return Page[PT]{}, err
	}
	return Page[PT]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (r *Repository[T, PT]) Count(ctx context.Context, conditions ...Condition) (int64, error) {
	exec, err := r.db.executor(r.exec)
	if err != nil {
		return 0, err
	}
	stmt := Select("COUNT(*)").From(r.table)
	for _, c := range r.filters(conditions) {
		stmt.WhereCond(c)
	}
	var n int64
	if _, err := r.db.fetchOne(ctx, exec, stmt, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repository[T, PT]) Exists(ctx context.Context, conditions ...Condition) (bool, error) {
	n, err := r.Count(ctx, conditions...)
	return n > 0, err
}

func (r *Repository[T, PT]) find(ctx context.Context, stmt *SelectStatement) ([]PT, error) {
	exec, err := r.db.executor(r.exec)
	if err != nil {
		return nil, err
	}
	var out []PT
	err = r.db.fetchAll(ctx, exec, stmt, func(rows pgxv5.Rows) error {
		e, serr := r.scan(rows)
		if serr != nil {
			return serr
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// selectStatement selects the domain columns followed by the envelope columns.
func (r *Repository[T, PT]) selectStatement(conditions ...Condition) *SelectStatement {
	stmt := Select(r.mapping.Columns...).AuditColumns().From(r.table)
	for _, c := range r.filters(conditions) {
		stmt.WhereCond(c)
	}
	return stmt
}

func (r *Repository[T, PT]) filters(conditions []Condition) []Condition {
	switch r.mode {
	case activityOnlyActive:
		return append(conditions[:len(conditions):len(conditions)], Eq(ColumnActive, true))
	case activityOnlyInactive:
		return append(conditions[:len(conditions):len(conditions)], Eq(ColumnActive, false))
	}
	return conditions
}

var envelopeMapping = core.StructMapper(reflect.TypeOf(EnvelopeData{}))

// scan maps one row to a new entity: domain values by column name, then the
// envelope from the trailing audit columns.
func (r *Repository[T, PT]) scan(rows pgxv5.Rows) (PT, error) {
	vals, err := rows.Values()
	if err != nil {
		return nil, err
	}
	fds := rows.FieldDescriptions()
	if len(vals) != len(fds) || len(vals) < len(AuditColumns) {
		return nil, &ORMError{Code: ErrCodeValidation, Message: "unexpected column count in result"}
	}
	e := PT(new(T))
	ev := reflect.ValueOf(e)
	split := len(vals) - len(AuditColumns)
	for i := 0; i < split; i++ {
		fi, ok := r.mapping.FieldsByColumn[strings.ToLower(fds[i].Name)]
		if !ok {
			continue
		}
		if !core.SetFieldByIndex(ev, fi.Index, vals[i]) {
			return nil, invalidCast(fds[i].Name, vals[i])
		}
	}

	var data EnvelopeData
	dv := reflect.ValueOf(&data)
	for i := split; i < len(vals); i++ {
		fi, ok := envelopeMapping.FieldsByColumn[strings.ToLower(fds[i].Name)]
		if !ok {
			return nil, &ORMError{Code: ErrCodeInvalidColumn, Message: "unexpected envelope column " + fds[i].Name}
		}
		if !core.SetFieldByIndex(dv, fi.Index, vals[i]) {
			return nil, invalidCast(fds[i].Name, vals[i])
		}
	}
	*e.Audit() = EnvelopeFromData(data)
	return e, nil
}

func invalidCast(column string, value any) error {
	return &ORMError{Code: ErrCodeInvalidCast, Message: fmt.Sprintf("cannot scan %T into column %s", value, column)}
}

// IsNotFound reports whether err is the not-found error returned by FindOne.
func IsNotFound(err error) bool {
	var oe *ORMError
	return errors.As(err, &oe) && oe.Code == ErrCodeNotFound
}
