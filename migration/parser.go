package migration

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	core "github.com/kintsdev/pgentity/internal/core"
	sqlutil "github.com/kintsdev/pgentity/internal/sqlutil"
	"github.com/shopspring/decimal"
)

// fieldTag represents parsed metadata for a struct field
type fieldTag struct {
	Name     string
	DBName   string
	DBType   string
	Unique   bool
	NotNull  bool
	Default  string
	FKTable  string
	FKColumn string
}

type modelInfo struct {
	TableName string
	Fields    []fieldTag
}

type tableNamer interface{ TableName() string }

// parseModel reads the domain columns of an entity struct. The embedded envelope
// is skipped; its columns come from EnvelopeColumnsDDL.
func parseModel(model any) modelInfo {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	mi := modelInfo{TableName: core.TableName(t)}
	if tn, ok := model.(tableNamer); ok {
		mi.TableName = tn.TableName()
	} else if tn, ok := reflect.New(t).Interface().(tableNamer); ok {
		mi.TableName = tn.TableName()
	}
	mapping := core.StructMapper(t)
	for _, col := range mapping.Columns {
		fi := mapping.FieldsByColumn[strings.ToLower(col)]
		f := t.FieldByIndex(fi.Index)
		tag := f.Tag.Get("pg")
		ft := fieldTag{Name: f.Name, DBName: col, DBType: mapGoTypeToPgType(f.Type), NotNull: f.Type.Kind() != reflect.Ptr}
		for _, p := range splitTag(tag) {
			p = strings.TrimSpace(p)
			lower := strings.ToLower(p)
			switch {
			case p == "":
			case lower == "unique":
				ft.Unique = true
			case lower == "null":
				ft.NotNull = false
			case lower == "not_null":
				ft.NotNull = true
			case strings.HasPrefix(lower, "default:"):
				ft.Default = p[len("default:"):]
			case strings.HasPrefix(lower, "references:"):
				ref := p[len("references:"):]
				if i := strings.Index(ref, "("); i > 0 && strings.HasSuffix(ref, ")") {
					ft.FKTable = ref[:i]
					ft.FKColumn = strings.TrimSuffix(ref[i+1:], ")")
				}
			default:
				// anything else is a type override such as varchar(50) or jsonb
				ft.DBType = p
			}
		}
		mi.Fields = append(mi.Fields, ft)
	}
	return mi
}

// splitTag splits a pg tag on commas outside parentheses, so numeric(12,2) stays whole.
func splitTag(tag string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(tag); i++ {
		switch tag[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, tag[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tag[start:])
}

func (f fieldTag) definition() string {
	var sb strings.Builder
	sb.WriteString(sqlutil.QuoteIdentifier(f.DBName))
	sb.WriteByte(' ')
	sb.WriteString(f.DBType)
	if f.NotNull {
		sb.WriteString(" NOT NULL")
	}
	if f.Unique {
		sb.WriteString(" UNIQUE")
	}
	if f.Default != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(f.Default)
	}
	if f.FKTable != "" {
		fmt.Fprintf(&sb, " REFERENCES %s(%s)", sqlutil.QuoteQualified(f.FKTable), sqlutil.QuoteIdentifier(f.FKColumn))
	}
	return sb.String()
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

func mapGoTypeToPgType(t reflect.Type) string {
	// strip pointer
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return "TIMESTAMPTZ"
	case uuidType:
		return "UUID"
	case decimalType:
		return "NUMERIC"
	}
	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return "INTEGER"
	case reflect.Int, reflect.Int64:
		return "BIGINT"
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "INTEGER"
	case reflect.Uint, reflect.Uint64:
		return "BIGINT"
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.Float32:
		return "REAL"
	case reflect.Float64:
		return "DOUBLE PRECISION"
	}
	return "TEXT"
}
