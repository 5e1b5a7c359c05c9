package pgentity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type ErrorCode int

const (
	ErrCodeConnection ErrorCode = iota
	ErrCodeNotFound
	ErrCodeDuplicate
	ErrCodeConstraint
	ErrCodeTransaction
	ErrCodeMigration
	ErrCodeValidation
	// Specific validation subtypes
	ErrCodeInvalidColumn
	ErrCodeInvalidFunction
	ErrCodeInvalidCast
	ErrCodeStringTooLong
	// Entity lifecycle
	ErrCodeUnknownSQLType
	ErrCodeMissingID
)

var (
	// ErrUnknownSQLType reports a value whose Go type cannot be mapped to a bind parameter.
	ErrUnknownSQLType = errors.New("could not determine a value's SQL type before binding")
	// ErrMissingID reports an entity without an identifier where one is required.
	ErrMissingID = errors.New("entity is missing its primary id")
)

// ORMError is a structured error for pgentity
type ORMError struct {
	Code     ErrorCode
	Message  string
	Internal error
	Query    string
	Args     []any
}

func (e *ORMError) Error() string { return e.Message }

// Unwrap returns the internal error so errors.Is/errors.As can traverse the chain
func (e *ORMError) Unwrap() error { return e.Internal }

// Is matches the lifecycle sentinels by code, so a bare ORMError built with
// ErrCodeMissingID still satisfies errors.Is(err, ErrMissingID).
func (e *ORMError) Is(target error) bool {
	switch target {
	case ErrUnknownSQLType:
		return e.Code == ErrCodeUnknownSQLType
	case ErrMissingID:
		return e.Code == ErrCodeMissingID
	}
	return false
}

// Classify maps an error returned by the driver to an ErrorCode. The save path never
// rewrites driver errors; callers that want a coarse category ask for it here.
// ok is false when err carries no recognisable cause.
func Classify(err error) (code ErrorCode, ok bool) {
	if err == nil {
		return 0, false
	}
	var oe *ORMError
	if errors.As(err, &oe) {
		return oe.Code, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTransaction, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgErrorCode(pgErr.Code), true
	}
	return 0, false
}

// pg error mapping: map common PostgreSQL errors to codes

func mapPgErrorCode(pgCode string) ErrorCode {
	switch pgCode {
	case "23505": // unique_violation
		return ErrCodeDuplicate
	case "23503", // foreign_key_violation
		"23514", // check_violation
		"23502", // not_null_violation
		"23513": // exclusion_violation
		return ErrCodeConstraint
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03", // lock_not_available
		"57014": // query_canceled
		return ErrCodeTransaction
	case "08000", "08001", "08003", "08004", "08006",
		"57P01", // admin_shutdown
		"57P02", // crash_shutdown
		"57P03", // cannot_connect_now
		"53300": // too_many_connections
		return ErrCodeConnection
	case "42703": // undefined_column
		return ErrCodeInvalidColumn
	case "42883": // undefined_function
		return ErrCodeInvalidFunction
	case "22P02": // invalid_text_representation
		return ErrCodeInvalidCast
	case "22001": // string_data_right_truncation
		return ErrCodeStringTooLong
	default:
		// 42601 syntax_error, 42P01 undefined_table and the rest
		return ErrCodeValidation
	}
}

func errorCodeName(c ErrorCode) string {
	switch c {
	case ErrCodeConnection:
		return "connection"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeDuplicate:
		return "duplicate"
	case ErrCodeConstraint:
		return "constraint"
	case ErrCodeTransaction:
		return "transaction"
	case ErrCodeMigration:
		return "migration"
	case ErrCodeInvalidColumn:
		return "invalid_column"
	case ErrCodeInvalidFunction:
		return "invalid_function"
	case ErrCodeInvalidCast:
		return "invalid_cast"
	case ErrCodeStringTooLong:
		return "string_too_long"
	case ErrCodeUnknownSQLType:
		return "unknown_sql_type"
	case ErrCodeMissingID:
		return "missing_id"
	default:
		return "validation"
	}
}

// String implements fmt.Stringer
func (c ErrorCode) String() string { return errorCodeName(c) }
