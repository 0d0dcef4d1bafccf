package db

import (
	"context"
	"fmt"
)

// ListColumns returns the live ordered column list of table. An unknown
// table yields an empty ColumnSet and no error.
func (s *Session) ListColumns(ctx context.Context, table string) (ColumnSet, error) {
	query := s.dialect.listColumns
	s.logQuery(query)

	rows, err := s.conn.QueryContext(ctx, query, table)
	if err != nil {
		return nil, s.fail(table, "list columns", fmt.Errorf("failed to query schema: %w", err))
	}
	defer rows.Close()

	columns := make(ColumnSet, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, s.fail(table, "list columns", fmt.Errorf("failed to scan schema row: %w", err))
		}
		columns = append(columns, name)
	}

	if err := rows.Err(); err != nil {
		return nil, s.fail(table, "list columns", fmt.Errorf("error iterating schema rows: %w", err))
	}

	return columns, nil
}
