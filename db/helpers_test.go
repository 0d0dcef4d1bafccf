package db

import (
	"context"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andys/stageload/config"
	"github.com/frankban/quicktest"
)

func newTestSession(c *quicktest.C, dbType DBType, role Role, cfg *config.Config) (*Session, sqlmock.Sqlmock) {
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	c.Cleanup(func() { dbMock.Close() })

	if cfg == nil {
		cfg = &config.Config{}
	}
	conn := &Connection{db: dbMock, Type: dbType, Role: role, cfg: cfg}
	session, err := conn.Acquire(context.Background())
	c.Assert(err, quicktest.IsNil)
	c.Cleanup(func() { session.Release() })
	return session, mock
}
