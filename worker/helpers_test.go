package worker

import (
	"context"
	"path/filepath"
	"time"

	"github.com/frankban/quicktest"

	"github.com/andys/stageload/config"
	"github.com/andys/stageload/db"
)

func testConfig() *config.Config {
	return &config.Config{
		WorkerCount:      4,
		Timeout:          30 * time.Second,
		KeyPrefix:        config.DefaultKeyPrefix,
		RowsPerStatement: db.DefaultRowsPerStatement,
	}
}

// openSQLite creates an on-disk database in the test's temp dir and runs the
// given statements against it.
func openSQLite(c *quicktest.C, name string, role db.Role, cfg *config.Config, stmts ...string) *db.Connection {
	path := filepath.Join(c.TempDir(), name+".db")
	conn, err := db.Connect(context.Background(), "sqlite://"+path, role, cfg, cfg.WorkerCount)
	c.Assert(err, quicktest.IsNil)
	c.Cleanup(func() { conn.Close() })

	for _, stmt := range stmts {
		_, err := conn.GetDB().Exec(stmt)
		c.Assert(err, quicktest.IsNil, quicktest.Commentf("statement: %s", stmt))
	}
	return conn
}

func exec(c *quicktest.C, conn *db.Connection, stmt string, args ...any) {
	_, err := conn.GetDB().Exec(stmt, args...)
	c.Assert(err, quicktest.IsNil, quicktest.Commentf("statement: %s", stmt))
}

func count(c *quicktest.C, conn *db.Connection, table string) int64 {
	var n int64
	err := conn.GetDB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	c.Assert(err, quicktest.IsNil)
	return n
}

// assertReleased checks that no pipeline still holds a pooled connection.
func assertReleased(c *quicktest.C, conns ...*db.Connection) {
	for _, conn := range conns {
		c.Assert(conn.GetDB().Stats().InUse, quicktest.Equals, 0)
	}
}
