package db

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andys/stageload/config"
	"github.com/frankban/quicktest"
	"github.com/lib/pq"
)

func makeTestBatch() Batch {
	return Batch{
		Table:   "cars",
		Columns: ColumnSet{"ID_cars", "name"},
		Rows: []Row{
			{int64(5), "O'Brien"},
			{int64(6), nil},
		},
	}
}

func TestInsertBatch(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, PostgreSQL, Destination, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cars (ID_cars, name) VALUES (5, 'O''Brien'), (6, NULL)")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := session.InsertBatch(context.Background(), makeTestBatch())
	c.Assert(err, quicktest.IsNil)
	c.Assert(n, quicktest.Equals, int64(2))
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestInsertBatch_SplitsStatementsInOneTransaction(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, MySQL, Destination, &config.Config{RowsPerStatement: 2})

	batch := Batch{
		Table:   "cities",
		Columns: ColumnSet{"ID_cities", "city"},
		Rows: []Row{
			{int64(1), "Recife"},
			{int64(2), "Natal"},
			{int64(3), "Belem"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cities (ID_cities, city) VALUES (1, 'Recife'), (2, 'Natal')")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cities (ID_cities, city) VALUES (3, 'Belem')")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := session.InsertBatch(context.Background(), batch)
	c.Assert(err, quicktest.IsNil)
	c.Assert(n, quicktest.Equals, int64(3))
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestInsertBatch_RejectedRollsBack(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, MySQL, Destination, &config.Config{RowsPerStatement: 1})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cars").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO cars").WillReturnError(errors.New("Duplicate entry '6' for key 'PRIMARY'"))
	mock.ExpectRollback()

	n, err := session.InsertBatch(context.Background(), makeTestBatch())
	c.Assert(n, quicktest.Equals, int64(0))
	c.Assert(KindOf(err), quicktest.Equals, KindQueryExecution)
	c.Assert(err, quicktest.ErrorMatches, "QueryExecutionError: insert cars: failed to execute insert: Duplicate entry .*")
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestInsertBatch_ConnectionLostRollsBack(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, PostgreSQL, Destination, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cars").WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})
	mock.ExpectRollback()

	_, err := session.InsertBatch(context.Background(), makeTestBatch())
	c.Assert(KindOf(err), quicktest.Equals, KindDestinationConnection)
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestInsertBatch_RowCountMismatchRollsBack(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, PostgreSQL, Destination, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cars").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := session.InsertBatch(context.Background(), makeTestBatch())
	c.Assert(err, quicktest.ErrorMatches, "QueryExecutionError: insert cars: inserted 1 rows, expected 2")
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestInsertBatch_BeginFails(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, PostgreSQL, Destination, nil)

	mock.ExpectBegin().WillReturnError(&pq.Error{Code: "08003", Message: "connection does not exist"})

	_, err := session.InsertBatch(context.Background(), makeTestBatch())
	c.Assert(KindOf(err), quicktest.Equals, KindDestinationConnection)
	c.Assert(err, quicktest.ErrorMatches, ".*failed to begin transaction: .*")
}

func TestInsertBatch_SerializationFailsBeforeWriting(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, PostgreSQL, Destination, nil)

	batch := makeTestBatch()
	batch.Rows = append(batch.Rows, Row{int64(7), math.NaN()})

	_, err := session.InsertBatch(context.Background(), batch)
	c.Assert(KindOf(err), quicktest.Equals, KindSerialization)
	c.Assert(err, quicktest.ErrorMatches, "SerializationError: insert cars: row 3: column name: non-finite number NaN")
	// Nothing reached the destination
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestInsertBatch_EmptyBatch(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, PostgreSQL, Destination, nil)

	_, err := session.InsertBatch(context.Background(), Batch{Table: "cars", Columns: ColumnSet{"ID_cars"}})
	c.Assert(err, quicktest.ErrorMatches, "QueryExecutionError: insert cars: batch has no rows")
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestInsertStatements_QuotedSQLServer(t *testing.T) {
	c := quicktest.New(t)
	session, _ := newTestSession(c, SQLServer, Destination, &config.Config{QuoteIdentifiers: true})

	statements, err := session.insertStatements(Batch{
		Table:   "Vendas",
		Columns: ColumnSet{"ID_Vendas", "pago"},
		Rows:    []Row{{int64(1), true}},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(statements, quicktest.DeepEquals, []string{
		"INSERT INTO [Vendas] ([ID_Vendas], [pago]) VALUES (1, 1)",
	})
}

func TestInsertStatements_SQLServerRowCap(t *testing.T) {
	c := quicktest.New(t)
	session, _ := newTestSession(c, SQLServer, Destination, &config.Config{RowsPerStatement: 1500})

	batch := Batch{Table: "cars", Columns: ColumnSet{"ID_cars"}}
	for id := int64(1); id <= 1001; id++ {
		batch.Rows = append(batch.Rows, Row{id})
	}

	statements, err := session.insertStatements(batch)
	c.Assert(err, quicktest.IsNil)
	c.Assert(statements, quicktest.HasLen, 2)
	c.Assert(strings.Count(statements[0], "("), quicktest.Equals, 1000+1)
	c.Assert(statements[1], quicktest.Equals, "INSERT INTO cars (ID_cars) VALUES (1001)")

	// Other dialects honour the configured size
	session, _ = newTestSession(c, PostgreSQL, Destination, &config.Config{RowsPerStatement: 1500})
	statements, err = session.insertStatements(batch)
	c.Assert(err, quicktest.IsNil)
	c.Assert(statements, quicktest.HasLen, 1)
}

func TestInsertBatch_TimeoutRollsBack(t *testing.T) {
	c := quicktest.New(t)
	session, mock := newTestSession(c, PostgreSQL, Destination, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cars").WillDelayFor(time.Second).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	n, err := session.InsertBatch(ctx, makeTestBatch())
	c.Assert(n, quicktest.Equals, int64(0))
	c.Assert(KindOf(err), quicktest.Equals, KindQueryExecution)

	// database/sql may roll the transaction back from its own goroutine
	deadline := time.Now().Add(time.Second)
	for mock.ExpectationsWereMet() != nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}
