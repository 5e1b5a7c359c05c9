package core

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
)

type StructFieldInfo struct {
	Index []int
	Name  string
}

// StructMapping describes the db columns of an entity struct, in declaration order.
// Embedded structs (the audit envelope) are not part of the mapping.
type StructMapping struct {
	Columns        []string
	FieldsByColumn map[string]StructFieldInfo
}

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

func StructMapper(t reflect.Type) StructMapping {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	m := StructMapping{FieldsByColumn: make(map[string]StructFieldInfo)}
	if t.Kind() != reflect.Struct {
		return m
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Anonymous {
			continue
		}
		col := ColumnName(f)
		if col == "" {
			continue
		}
		key := strings.ToLower(col)
		m.Columns = append(m.Columns, col)
		m.FieldsByColumn[key] = StructFieldInfo{Index: f.Index, Name: f.Name}
	}
	return m
}

// ColumnName returns the column for a struct field: the db tag, or the snake_case
// field name when untagged. A tag of "-" excludes the field.
func ColumnName(f reflect.StructField) string {
	col := f.Tag.Get("db")
	if col == "-" {
		return ""
	}
	if col == "" {
		col = ToSnakeCase(f.Name)
	}
	return col
}

// SetFieldByIndex assigns a driver value to the field at index, converting where the
// types allow it. It reports false, leaving the field untouched, when value cannot be
// stored in the field.
func SetFieldByIndex(v reflect.Value, index []int, value any) bool {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	fv := v.FieldByIndex(index)
	if !fv.IsValid() || !fv.CanSet() {
		return false
	}
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return true
	}
	if t, ok := value.(time.Time); ok && fv.Type() == reflect.TypeOf(time.Time{}) {
		fv.Set(reflect.ValueOf(t))
		return true
	}
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(fv.Type()) {
		fv.Set(val)
		return true
	}
	if val.Type().ConvertibleTo(fv.Type()) && convertSafe(val.Kind(), fv.Kind()) {
		fv.Set(val.Convert(fv.Type()))
		return true
	}
	if fv.Kind() == reflect.Ptr {
		p := reflect.New(fv.Type().Elem())
		if !assignIndirect(p.Elem(), value) {
			return false
		}
		fv.Set(p)
		return true
	}
	return assignIndirect(fv, value)
}

// assignIndirect handles targets such as decimal.Decimal or uuid.UUID that implement
// sql.Scanner, feeding them the driver form of value.
func assignIndirect(fv reflect.Value, value any) bool {
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(fv.Type()) {
		fv.Set(val)
		return true
	}
	if val.Type().ConvertibleTo(fv.Type()) && convertSafe(val.Kind(), fv.Kind()) {
		fv.Set(val.Convert(fv.Type()))
		return true
	}
	if !fv.CanAddr() || !fv.Addr().Type().Implements(scannerType) {
		return false
	}
	src := value
	if valuer, ok := value.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return false
		}
		src = dv
	}
	if arr, ok := src.([16]byte); ok {
		src = arr[:]
	}
	return fv.Addr().Interface().(sql.Scanner).Scan(src) == nil
}

// convertSafe rejects reflect conversions that compile but change meaning, such as int -> string.
func convertSafe(from, to reflect.Kind) bool {
	if to == reflect.String {
		return from == reflect.String
	}
	return true
}

func ToSnakeCase(s string) string {
	var out []rune
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i > 0 && i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' && runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			if prevLower || nextLower {
				out = append(out, '_')
			}
			out = append(out, r+('a'-'A'))
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// TableName derives a table name from a struct type: the pluralised snake_case type name.
func TableName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	snake := ToSnakeCase(t.Name())
	idx := strings.LastIndexByte(snake, '_')
	return snake[:idx+1] + inflection.Plural(snake[idx+1:])
}
