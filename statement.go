package pgentity

import (
	"fmt"
	"strings"

	sqlutil "github.com/kintsdev/pgentity/internal/sqlutil"
)

// Statement is anything that renders to PostgreSQL text plus bound arguments.
type Statement interface {
	Build() (string, []any, error)
}

// QuoteIdentifier safely quotes a SQL identifier by wrapping in double quotes and escaping embedded quotes
func QuoteIdentifier(identifier string) string { return sqlutil.QuoteIdentifier(identifier) }

// QuoteQualified quotes a possibly schema-qualified name such as audit.notes
func QuoteQualified(name string) string { return sqlutil.QuoteQualified(name) }

type assignment struct {
	column string
	value  any
}

// assignments keeps column order stable and lets a later write to the same column win.
type assignments []assignment

func (as assignments) set(col string, v any) assignments {
	for i := range as {
		if strings.EqualFold(as[i].column, col) {
			as[i].value = v
			return as
		}
	}
	return append(as, assignment{column: col, value: v})
}

func (as assignments) has(col string) bool {
	for _, a := range as {
		if strings.EqualFold(a.column, col) {
			return true
		}
	}
	return false
}

// placeholder renders v as $n, or verbatim for an Expr, and returns the next index.
func placeholder(v any, idx int, args []any) (string, int, []any) {
	if e, ok := v.(Expr); ok {
		return e.SQL, idx, args
	}
	return fmt.Sprintf("$%d", idx), idx + 1, append(args, v)
}

type whereClause struct {
	expr     string
	args     []any
	numbered bool // expr already uses $1..$n
	err      error
}

type whereList []whereClause

func (w whereList) render(start int) (string, []any, int, error) {
	if len(w) == 0 {
		return "", nil, start, nil
	}
	parts := make([]string, 0, len(w))
	var args []any
	next := start
	for _, c := range w {
		if c.err != nil {
			return "", nil, next, c.err
		}
		if c.numbered {
			parts = append(parts, sqlutil.RenumberPlaceholders(c.expr, next-1))
			next += len(c.args)
		} else {
			var conv string
			conv, next = sqlutil.ConvertQMarksFrom(c.expr, next)
			parts = append(parts, conv)
		}
		args = append(args, c.args...)
	}
	if len(w) == 1 {
		return parts[0], args, next, nil
	}
	for i, p := range parts {
		parts[i] = "(" + p + ")"
	}
	return strings.Join(parts, " AND "), args, next, nil
}

func validationError(msg string) error {
	return &ORMError{Code: ErrCodeValidation, Message: msg}
}

// InsertStatement builds a single-row INSERT.
type InsertStatement struct {
	table     string
	values    assignments
	returning []string
}

func Insert(table string) *InsertStatement { return &InsertStatement{table: table} }

func (s *InsertStatement) Table() string { return s.table }

// Value sets the value for a column; setting the same column again replaces it.
func (s *InsertStatement) Value(column string, v any) *InsertStatement {
	s.values = s.values.set(column, v)
	return s
}

// HasColumn reports whether column already has a value.
func (s *InsertStatement) HasColumn(column string) bool { return s.values.has(column) }

func (s *InsertStatement) Returning(cols ...string) *InsertStatement {
	s.returning = cols
	return s
}

func (s *InsertStatement) Build() (string, []any, error) {
	if strings.TrimSpace(s.table) == "" {
		return "", nil, validationError("insert: table is required")
	}
	if len(s.values) == 0 {
		return "", nil, validationError("insert: at least one column value is required")
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(s.table)
	var args []any
	cols := make([]string, 0, len(s.values))
	phs := make([]string, 0, len(s.values))
	idx := 1
	for _, a := range s.values {
		var ph string
		ph, idx, args = placeholder(a.value, idx, args)
		cols = append(cols, a.column)
		phs = append(phs, ph)
	}
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(phs, ", "))
	sb.WriteString(")")
	if len(s.returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(s.returning, ", "))
	}
	bound, err := bindArgs(args)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), bound, nil
}

// UpdateStatement builds an UPDATE ... SET ... WHERE ... statement.
type UpdateStatement struct {
	table     string
	sets      assignments
	wheres    whereList
	returning []string
}

func Update(table string) *UpdateStatement { return &UpdateStatement{table: table} }

func (s *UpdateStatement) Table() string { return s.table }

// Set assigns a column; setting the same column again replaces it.
func (s *UpdateStatement) Set(column string, v any) *UpdateStatement {
	s.sets = s.sets.set(column, v)
	return s
}

func (s *UpdateStatement) Where(condition string, args ...any) *UpdateStatement {
	s.wheres = append(s.wheres, whereClause{expr: condition, args: args})
	return s
}

func (s *UpdateStatement) WhereCond(c Condition) *UpdateStatement {
	return s.Where(c.Expr, c.Args...)
}

func (s *UpdateStatement) Returning(cols ...string) *UpdateStatement {
	s.returning = cols
	return s
}

func (s *UpdateStatement) Build() (string, []any, error) {
	if strings.TrimSpace(s.table) == "" {
		return "", nil, validationError("update: table is required")
	}
	if len(s.sets) == 0 {
		return "", nil, validationError("update: at least one SET column is required")
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(s.table)
	sb.WriteString(" SET ")
	var args []any
	idx := 1
	for i, a := range s.sets {
		if i > 0 {
			sb.WriteString(", ")
		}
		var ph string
		ph, idx, args = placeholder(a.value, idx, args)
		sb.WriteString(a.column)
		sb.WriteString(" = ")
		sb.WriteString(ph)
	}
	where, whereArgs, _, err := s.wheres.render(idx)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = append(args, whereArgs...)
	}
	if len(s.returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(s.returning, ", "))
	}
	bound, err := bindArgs(args)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), bound, nil
}

// SelectStatement builds a SELECT over a single table.
type SelectStatement struct {
	table   string
	columns []string
	wheres  whereList
	orderBy string
	limit   int
	offset  int
}

func Select(columns ...string) *SelectStatement {
	return &SelectStatement{columns: append([]string(nil), columns...)}
}

func (s *SelectStatement) From(table string) *SelectStatement { s.table = table; return s }

// Columns appends columns to the select list.
func (s *SelectStatement) Columns(columns ...string) *SelectStatement {
	s.columns = append(s.columns, columns...)
	return s
}

// AuditColumns appends the envelope columns to the select list.
func (s *SelectStatement) AuditColumns() *SelectStatement { return s.Columns(AuditColumns...) }

func (s *SelectStatement) Where(condition string, args ...any) *SelectStatement {
	s.wheres = append(s.wheres, whereClause{expr: condition, args: args})
	return s
}

func (s *SelectStatement) WhereCond(c Condition) *SelectStatement {
	return s.Where(c.Expr, c.Args...)
}

// WhereNamed adds a WHERE clause with :name parameters; a conversion error surfaces from Build.
func (s *SelectStatement) WhereNamed(condition string, named map[string]any) *SelectStatement {
	conv, ordered, err := sqlutil.ConvertNamedToPgPlaceholders(condition, named)
	if err != nil {
		s.wheres = append(s.wheres, whereClause{err: &ORMError{Code: ErrCodeValidation, Message: err.Error(), Internal: err}})
		return s
	}
	s.wheres = append(s.wheres, whereClause{expr: conv, args: ordered, numbered: true})
	return s
}

func (s *SelectStatement) OrderBy(ob string) *SelectStatement { s.orderBy = ob; return s }
func (s *SelectStatement) Limit(n int) *SelectStatement       { s.limit = n; return s }
func (s *SelectStatement) Offset(n int) *SelectStatement      { s.offset = n; return s }

func (s *SelectStatement) Build() (string, []any, error) {
	if strings.TrimSpace(s.table) == "" {
		return "", nil, validationError("select: table is required")
	}
	cols := "*"
	if len(s.columns) > 0 {
		cols = strings.Join(s.columns, ", ")
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(s.table)
	where, args, _, err := s.wheres.render(1)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if s.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(s.orderBy)
	}
	if s.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", s.limit)
	}
	if s.offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", s.offset)
	}
	bound, err := bindArgs(args)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), bound, nil
}
