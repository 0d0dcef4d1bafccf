package db

import (
	"context"
	"fmt"
	"strings"
)

// SelectWhereGreaterThan reads every row of table whose keyColumn exceeds
// threshold, projected onto columns. A failure at any point, including after
// some rows arrived, discards everything read so far.
func (s *Session) SelectWhereGreaterThan(ctx context.Context, table string, columns ColumnSet, keyColumn string, threshold int64) ([]Row, error) {
	tableID, err := s.ident(table)
	if err != nil {
		return nil, newError(KindSerialization, table, "extract", err)
	}
	keyID, err := s.ident(keyColumn)
	if err != nil {
		return nil, newError(KindSerialization, table, "extract", err)
	}
	columnIDs, err := s.dialect.identifiers(columns, s.parent.cfg.QuoteIdentifiers)
	if err != nil {
		return nil, newError(KindSerialization, table, "extract", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s > %s ORDER BY %s",
		strings.Join(columnIDs, ", "), tableID, keyID, s.dialect.placeholder(1), keyID,
	)
	s.logQuery(query)

	rows, err := s.conn.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, newError(KindQueryExecution, table, "extract", fmt.Errorf("failed to query table %s: %w", table, err))
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, newError(KindQueryExecution, table, "extract", fmt.Errorf("failed to read column types of table %s: %w", table, err))
	}
	classes := columnClasses(columnTypes)

	// Prepare value holders
	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	result := make([]Row, 0)
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, newError(KindQueryExecution, table, "extract", fmt.Errorf("failed to scan row from table %s: %w", table, err))
		}
		// Scan into *any copies []byte values, so the row owns its data
		row := make(Row, len(values))
		for i, v := range values {
			row[i] = typed(classes[i], v)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, newError(KindQueryExecution, table, "extract", fmt.Errorf("error iterating rows from table %s: %w", table, err))
	}

	return result, nil
}
