package db

import (
	"database/sql"
	"strings"
	"time"
)

// Numeric is an exact decimal as the source driver rendered it. It is written
// unquoted.
type Numeric string

// Binary is raw column data. It is always written as a binary literal, even
// when the bytes happen to be valid text.
type Binary []byte

// TimeOfDay is a TIME value without a date, such as "10:00:00.5" or
// "10:00:00+02:00".
type TimeOfDay string

type columnClass int

const (
	plainColumn columnClass = iota
	numericColumn
	binaryColumn
	timeColumn
	timeTZColumn
)

// classOf maps a driver's DatabaseTypeName onto the value treatment it needs.
// Unknown or empty names leave the scanned value alone.
func classOf(databaseType string) columnClass {
	name := strings.ToUpper(strings.TrimSpace(databaseType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	switch name {
	case "NUMERIC", "DECIMAL", "DEC", "NUMBER", "FIXED":
		return numericColumn
	case "BYTEA", "BINARY", "VARBINARY", "IMAGE", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return binaryColumn
	case "TIME":
		return timeColumn
	case "TIMETZ", "TIME WITH TIME ZONE":
		return timeTZColumn
	default:
		return plainColumn
	}
}

func columnClasses(types []*sql.ColumnType) []columnClass {
	classes := make([]columnClass, len(types))
	for i, t := range types {
		classes[i] = classOf(t.DatabaseTypeName())
	}
	return classes
}

// typed tags v with its column's class so rendering does not have to guess
// from the Go type the driver chose.
func typed(class columnClass, v any) any {
	switch class {
	case numericColumn:
		switch val := v.(type) {
		case []byte:
			return Numeric(val)
		case string:
			return Numeric(val)
		}
	case binaryColumn:
		switch val := v.(type) {
		case []byte:
			return Binary(val)
		case string:
			return Binary(val)
		}
	case timeColumn, timeTZColumn:
		switch val := v.(type) {
		case time.Time:
			if class == timeTZColumn {
				return TimeOfDay(val.Format("15:04:05.999999999-07:00"))
			}
			return TimeOfDay(val.Format("15:04:05.999999999"))
		case []byte:
			return TimeOfDay(val)
		case string:
			return TimeOfDay(val)
		}
	}
	return v
}
