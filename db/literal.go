package db

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	errNulByte     = errors.New("text contains a NUL byte")
	errInvalidUTF8 = errors.New("text is not valid UTF-8")

	numericPattern   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	timeOfDayPattern = regexp.MustCompile(`^-?\d{1,3}:\d{2}:\d{2}(\.\d{1,9})?([+-]\d{2}(:?\d{2})?|Z)?$`)
)

// literal renders v as a destination-safe SQL literal. Text and timestamps are
// quoted with embedded quotes escaped, numbers and booleans are written bare
// and nil becomes NULL.
func (d dialect) literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return d.textLiteral(val)
	case Numeric:
		if !numericPattern.MatchString(string(val)) {
			return "", fmt.Errorf("invalid numeric value %q", string(val))
		}
		return string(val), nil
	case Binary:
		return d.binaryLiteral(val), nil
	case TimeOfDay:
		if !timeOfDayPattern.MatchString(string(val)) {
			return "", fmt.Errorf("invalid time of day %q", string(val))
		}
		return d.quoteString(string(val)), nil
	case []byte:
		if utf8.Valid(val) && bytes.IndexByte(val, 0) < 0 {
			return d.textLiteral(string(val))
		}
		return d.binaryLiteral(val), nil
	case bool:
		return d.boolLiteral(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int:
		return strconv.Itoa(val), nil
	case float64:
		return floatLiteral(val, 64)
	case float32:
		return floatLiteral(float64(val), 32)
	case time.Time:
		return d.timeLiteral(val), nil
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return "", err
		}
		if _, again := inner.(driver.Valuer); again {
			return "", fmt.Errorf("unsupported value type %T", v)
		}
		return d.literal(inner)
	}

	// Named and sized scalar types
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return d.textLiteral(rv.String())
	case reflect.Bool:
		return d.boolLiteral(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return floatLiteral(rv.Float(), 32)
	case reflect.Float64:
		return floatLiteral(rv.Float(), 64)
	case reflect.Pointer:
		if rv.IsNil() {
			return "NULL", nil
		}
		return d.literal(rv.Elem().Interface())
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}

func (d dialect) textLiteral(s string) (string, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return "", errNulByte
	}
	if !utf8.ValidString(s) {
		return "", errInvalidUTF8
	}
	return d.quoteString(s), nil
}

func (d dialect) timeLiteral(t time.Time) string {
	if d.dbType == MySQL {
		t = t.UTC()
	}
	return "'" + t.Format(d.timeLayout) + "'"
}

func floatLiteral(f float64, bitSize int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v", f)
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize), nil
}

// rowLiteral renders one row as a parenthesized VALUES tuple.
func (d dialect) rowLiteral(columns ColumnSet, row Row) (string, error) {
	if len(row) != len(columns) {
		return "", fmt.Errorf("row has %d values for %d columns", len(row), len(columns))
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range row {
		lit, err := d.literal(v)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", columns[i], err)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(lit)
	}
	b.WriteByte(')')
	return b.String(), nil
}
