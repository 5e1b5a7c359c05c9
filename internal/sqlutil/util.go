package sqlutil

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ConvertQMarksFrom converts '?' placeholders starting at $start and returns the
// converted fragment together with the next free placeholder index.
// Question marks inside single-quoted literals are left alone.
func ConvertQMarksFrom(s string, start int) (string, int) {
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	var buf [20]byte
	index := start
	inSingle := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\'' {
			inSingle = !inSingle
		}
		if ch == '?' && !inSingle {
			sb.WriteByte('$')
			sb.Write(strconv.AppendInt(buf[:0], int64(index), 10))
			index++
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String(), index
}

// ConvertNamedToPgPlaceholders converts :name placeholders into $1, $2, ... and returns ordered args.
// Names match [A-Za-z_][A-Za-z0-9_]*, text inside single quotes and '::' casts are skipped,
// slice values expand to a parenthesised list, and repeated scalar names reuse their index.
func ConvertNamedToPgPlaceholders(sql string, named map[string]any) (string, []any, error) {
	var out strings.Builder
	args := make([]any, 0, len(named))
	seen := map[string]int{}
	inSingle := false
	next := 1
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			inSingle = !inSingle
			out.WriteByte(ch)
			continue
		case inSingle || ch != ':':
			out.WriteByte(ch)
			continue
		}
		if i+1 < len(sql) && sql[i+1] == ':' {
			out.WriteString("::")
			i++
			continue
		}
		if i+1 >= len(sql) || !isIdentStart(sql[i+1]) {
			out.WriteByte(ch)
			continue
		}
		j := i + 2
		for j < len(sql) && isIdentPart(sql[j]) {
			j++
		}
		name := sql[i+1 : j]
		val, ok := named[name]
		if !ok {
			return "", nil, fmt.Errorf("missing named param: %s", name)
		}
		if isSliceButNotBytes(val) {
			if _, dup := seen[name]; dup {
				return "", nil, fmt.Errorf("repeated slice named param not supported: %s", name)
			}
			rv := reflect.ValueOf(val)
			if rv.Len() == 0 {
				out.WriteString("(NULL)")
			} else {
				out.WriteByte('(')
				for k := 0; k < rv.Len(); k++ {
					if k > 0 {
						out.WriteString(", ")
					}
					out.WriteString("$" + strconv.Itoa(next))
					args = append(args, rv.Index(k).Interface())
					next++
				}
				out.WriteByte(')')
			}
			seen[name] = -1
		} else if idx := seen[name]; idx > 0 {
			out.WriteString("$" + strconv.Itoa(idx))
		} else {
			out.WriteString("$" + strconv.Itoa(next))
			args = append(args, val)
			seen[name] = next
			next++
		}
		i = j - 1
	}
	return out.String(), args, nil
}

// RenumberPlaceholders adds offset to all $N placeholders in a single pass,
// correctly handling multi-digit placeholders (e.g., $10, $11).
func RenumberPlaceholders(sql string, offset int) string {
	if offset == 0 {
		return sql
	}
	var sb strings.Builder
	sb.Grow(len(sql) + 16)
	i := 0
	for i < len(sql) {
		if sql[i] == '$' && i+1 < len(sql) && sql[i+1] >= '1' && sql[i+1] <= '9' {
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			num, _ := strconv.Atoi(sql[i+1 : j])
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(num + offset))
			i = j
			continue
		}
		sb.WriteByte(sql[i])
		i++
	}
	return sb.String()
}

// QuoteIdentifier wraps an identifier in double quotes, doubling embedded quotes.
func QuoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// QuoteQualified quotes every dot-separated part of a schema-qualified name.
func QuoteQualified(name string) string {
	if strings.TrimSpace(name) == "" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdentifier(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isSliceButNotBytes(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		// []byte and fixed byte arrays such as uuid.UUID bind as one value
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}
