package pgentity

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expr is a SQL fragment rendered verbatim in place of a bind parameter.
type Expr struct{ SQL string }

// Raw returns an Expr for the given SQL fragment, e.g. Raw("now()").
func Raw(sql string) Expr { return Expr{SQL: sql} }

// Default renders the DEFAULT keyword so the column takes its schema default.
var Default = Expr{SQL: "DEFAULT"}

// BindValue maps a Go value to a parameter pgx can encode. Named types are reduced to
// their underlying kind so string-backed enums bind as text. Values with no mapping
// yield an error matching ErrUnknownSQLType.
func BindValue(v any) (any, error) {
	// nil pointers bind NULL even when the pointer type implements driver.Valuer
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, nil
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int64, float64, time.Time:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case uuid.UUID:
		return t, nil
	case uuid.NullUUID:
		if !t.Valid {
			return nil, nil
		}
		return t.UUID, nil
	case decimal.Decimal:
		return t, nil
	case decimal.NullDecimal:
		if !t.Valid {
			return nil, nil
		}
		return t.Decimal, nil
	case driver.Valuer:
		return t, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return BindValue(rv.Elem().Interface())
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, unknownSQLType(v, "unsigned value overflows bigint")
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, unknownSQLType(v, "")
}

func bindArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		b, err := BindValue(a)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func unknownSQLType(v any, detail string) error {
	msg := fmt.Sprintf("%s: %T", ErrUnknownSQLType.Error(), v)
	if detail != "" {
		msg += " (" + detail + ")"
	}
	return &ORMError{Code: ErrCodeUnknownSQLType, Message: msg, Internal: ErrUnknownSQLType}
}
