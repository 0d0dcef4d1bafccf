package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultRowsPerStatement caps the VALUES tuples of one INSERT statement.
const DefaultRowsPerStatement = 1000

// sqlServerMaxRows is the most row value expressions SQL Server accepts in a
// single INSERT ... VALUES.
const sqlServerMaxRows = 1000

var errEmptyBatch = errors.New("batch has no rows")

// InsertBatch writes every row of batch inside a single transaction and
// returns the number of rows inserted. Either all rows are committed or none.
func (s *Session) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	if len(batch.Rows) == 0 {
		return 0, newError(KindQueryExecution, batch.Table, "insert", errEmptyBatch)
	}

	statements, err := s.insertStatements(batch)
	if err != nil {
		return 0, newError(KindSerialization, batch.Table, "insert", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.fail(batch.Table, "insert", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var inserted int64
	for _, query := range statements {
		s.logQuery(query)
		res, err := tx.ExecContext(ctx, query)
		if err != nil {
			return 0, s.fail(batch.Table, "insert", fmt.Errorf("failed to execute insert: %w", err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, s.fail(batch.Table, "insert", fmt.Errorf("failed to read rows affected: %w", err))
		}
		inserted += n
	}

	if inserted != int64(len(batch.Rows)) {
		return 0, newError(KindQueryExecution, batch.Table, "insert",
			fmt.Errorf("inserted %d rows, expected %d", inserted, len(batch.Rows)))
	}

	if err := tx.Commit(); err != nil {
		return 0, s.fail(batch.Table, "insert", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return inserted, nil
}

// insertStatements renders batch as multi-row INSERT statements of at most
// RowsPerStatement rows each.
func (s *Session) insertStatements(batch Batch) ([]string, error) {
	tableID, err := s.ident(batch.Table)
	if err != nil {
		return nil, err
	}
	columnIDs, err := s.dialect.identifiers(batch.Columns, s.parent.cfg.QuoteIdentifiers)
	if err != nil {
		return nil, err
	}
	if len(columnIDs) == 0 {
		return nil, errors.New("batch has no columns")
	}

	perStatement := s.parent.cfg.RowsPerStatement
	if perStatement < 1 {
		perStatement = DefaultRowsPerStatement
	}
	if s.dialect.dbType == SQLServer && perStatement > sqlServerMaxRows {
		perStatement = sqlServerMaxRows
	}

	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tableID, strings.Join(columnIDs, ", "))
	statements := make([]string, 0, (len(batch.Rows)+perStatement-1)/perStatement)

	for start := 0; start < len(batch.Rows); start += perStatement {
		end := min(start+perStatement, len(batch.Rows))

		var b strings.Builder
		b.WriteString(prefix)
		for i, row := range batch.Rows[start:end] {
			tuple, err := s.dialect.rowLiteral(batch.Columns, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", start+i+1, err)
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(tuple)
		}
		statements = append(statements, b.String())
	}

	return statements, nil
}
