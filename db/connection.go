package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/andys/stageload/config"
)

type DBType string

const (
	MySQL      DBType = "mysql"
	PostgreSQL DBType = "postgres"
	SQLServer  DBType = "sqlserver"
	SQLite     DBType = "sqlite3"
	Snowflake  DBType = "snowflake"
)

// Connection represents a pooled database connection
type Connection struct {
	db   *sql.DB
	Type DBType
	Role Role
	cfg  *config.Config
	log  logr.Logger
}

// Connect establishes a database connection pool from a URL string. The pool
// holds at most maxConns connections, one per concurrent table pipeline.
func Connect(ctx context.Context, dbURL string, role Role, cfg *config.Config, maxConns int) (*Connection, error) {
	dbType, dsn, err := parseURL(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dbType), dsn)
	if err != nil {
		return nil, newError(role.connectionKind(), "", "open", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()

	// Test the connection
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, newError(role.connectionKind(), "", "ping", err)
	}

	return &Connection{db: db, Type: dbType, Role: role, cfg: cfg, log: logr.Discard()}, nil
}

// parseURL converts a database URL into a driver name and DSN.
func parseURL(dbURL string) (DBType, string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "mysql":
		// Convert URL format to DSN format
		// Remove leading '/' from path (database name)
		database := strings.TrimPrefix(u.Path, "/")
		params := u.Query()
		if params.Get("parseTime") == "" {
			params.Set("parseTime", "true")
		}
		return MySQL, fmt.Sprintf("%s@tcp(%s)/%s?%s", u.User.String(), u.Host, database, params.Encode()), nil

	case "postgres", "postgresql":
		// PostgreSQL can use the URL directly
		return PostgreSQL, dbURL, nil

	case "sqlserver", "mssql":
		u.Scheme = "sqlserver"
		return SQLServer, u.String(), nil

	case "sqlite", "sqlite3":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return "", "", fmt.Errorf("invalid database URL: sqlite URL has no path")
		}
		params := u.Query()
		if params.Get("_busy_timeout") == "" {
			params.Set("_busy_timeout", "10000")
		}
		if params.Get("_txlock") == "" {
			params.Set("_txlock", "immediate")
		}
		return SQLite, "file:" + path + "?" + params.Encode(), nil

	case "snowflake":
		// gosnowflake takes user:password@account/database/schema?params
		return Snowflake, strings.TrimPrefix(dbURL, "snowflake://"), nil

	default:
		return "", "", fmt.Errorf("unsupported database type: %s", u.Scheme)
	}
}

// Acquire borrows a dedicated connection from the pool. The caller must
// Release the session on every exit path.
func (c *Connection) Acquire(ctx context.Context) (*Session, error) {
	if c.db == nil {
		return nil, newError(c.Role.connectionKind(), "", "acquire", sql.ErrConnDone)
	}

	ctx, cancel := withTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, newError(c.Role.connectionKind(), "", "acquire", err)
	}
	return &Session{conn: conn, parent: c, dialect: dialectFor(c.Type)}, nil
}

// SetLogger sets the logger used for rendered SQL at verbosity 2.
func (c *Connection) SetLogger(log logr.Logger) {
	c.log = log.WithValues("role", c.Role.String(), "db", string(c.Type))
}

// Close closes the database connection
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// GetDB returns the underlying *sql.DB instance
func (c *Connection) GetDB() *sql.DB {
	return c.db
}

// Session is a single connection borrowed from a Connection pool. It is not
// safe for concurrent use.
type Session struct {
	conn    *sql.Conn
	parent  *Connection
	dialect dialect
}

// Release returns the connection to the pool.
func (s *Session) Release() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) role() Role {
	return s.parent.Role
}

func (s *Session) logQuery(query string) {
	s.parent.log.V(2).Info("Executing SQL", "query", query)
}

func (s *Session) ident(name string) (string, error) {
	return s.dialect.identifier(name, s.parent.cfg.QuoteIdentifiers)
}

func (s *Session) fail(table, op string, err error) error {
	return newError(classify(err, s.role(), s.parent.Type), table, op, err)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
