package pgentity

import (
	"strings"
	"time"
)

// Condition is a WHERE fragment with '?' placeholders and its arguments.
type Condition struct {
	Expr string
	Args []any
}

func Eq(col string, v any) Condition { return Condition{Expr: col + " = ?", Args: []any{v}} }
func Ne(col string, v any) Condition { return Condition{Expr: col + " <> ?", Args: []any{v}} }
func Gt(col string, v any) Condition { return Condition{Expr: col + " > ?", Args: []any{v}} }
func Ge(col string, v any) Condition { return Condition{Expr: col + " >= ?", Args: []any{v}} }
func Lt(col string, v any) Condition { return Condition{Expr: col + " < ?", Args: []any{v}} }
func Le(col string, v any) Condition { return Condition{Expr: col + " <= ?", Args: []any{v}} }

// IsNull and NotNull take no arguments.
func IsNull(col string) Condition  { return Condition{Expr: col + " IS NULL"} }
func NotNull(col string) Condition { return Condition{Expr: col + " IS NOT NULL"} }

func Between(col string, from, to any) Condition {
	return Condition{Expr: col + " BETWEEN ? AND ?", Args: []any{from, to}}
}

// CreatedBetween and UpdatedBetween select rows by audit timestamps, inclusive on both ends.
func CreatedBetween(from, to time.Time) Condition { return Between(ColumnCreatedTime, from, to) }
func UpdatedBetween(from, to time.Time) Condition {
	return Between(ColumnLastUpdatedTime, from, to)
}

func In(col string, vals []any) Condition {
	if len(vals) == 0 {
		return Condition{Expr: "1=0"}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
	args := append([]any(nil), vals...)
	return Condition{Expr: col + " IN (" + placeholders + ")", Args: args}
}

func RawCond(expr string, args ...any) Condition { return Condition{Expr: expr, Args: args} }

// CreatedBy and UpdatedBy filter on the audit actor columns.
func CreatedBy(user any) Condition { return Eq(ColumnCreatedBy, user) }
func UpdatedBy(user any) Condition { return Eq(ColumnLastUpdatedBy, user) }

func And(conds ...Condition) Condition { return join(" AND ", "1=1", conds) }
func Or(conds ...Condition) Condition  { return join(" OR ", "1=0", conds) }

func join(sep, empty string, conds []Condition) Condition {
	if len(conds) == 0 {
		return Condition{Expr: empty}
	}
	exprs := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		exprs = append(exprs, "("+c.Expr+")")
		args = append(args, c.Args...)
	}
	return Condition{Expr: strings.Join(exprs, sep), Args: args}
}
