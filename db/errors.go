package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/snowflakedb/gosnowflake"
)

// ErrorKind classifies why a replication step failed.
type ErrorKind string

const (
	KindSourceConnection      ErrorKind = "SourceConnectionError"
	KindDestinationConnection ErrorKind = "DestinationConnectionError"
	KindSchemaMismatch        ErrorKind = "SchemaMismatchError"
	KindQueryExecution        ErrorKind = "QueryExecutionError"
	KindSerialization         ErrorKind = "SerializationError"
)

// Role tells the classifier which side of the transfer a connection serves.
type Role int

const (
	Source Role = iota
	Destination
)

func (r Role) String() string {
	if r == Source {
		return "source"
	}
	return "destination"
}

func (r Role) connectionKind() ErrorKind {
	if r == Source {
		return KindSourceConnection
	}
	return KindDestinationConnection
}

// Error is returned by every Session operation.
type Error struct {
	Kind  ErrorKind
	Table string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by err, or "" when err was not produced
// by this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, table, op string, err error) *Error {
	return &Error{Kind: kind, Table: table, Op: op, Err: err}
}

// classify maps a driver error onto an ErrorKind for the given role.
func classify(err error, role Role, dbType DBType) ErrorKind {
	switch {
	case isConnectionError(err):
		return role.connectionKind()
	case isUndefinedColumn(err, dbType):
		return KindSchemaMismatch
	default:
		return KindQueryExecution
	}
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception
		return pqErr.Code.Class() == "08"
	}
	return false
}

func isUndefinedColumn(err error, dbType DBType) bool {
	switch dbType {
	case PostgreSQL:
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "42703"
	case MySQL:
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == 1054
	case SQLServer:
		var msErr mssql.Error
		return errors.As(err, &msErr) && msErr.Number == 207
	case Snowflake:
		var sfErr *gosnowflake.SnowflakeError
		return errors.As(err, &sfErr) && sfErr.Number == 904
	case SQLite:
		return strings.Contains(err.Error(), "no such column")
	default:
		return false
	}
}
