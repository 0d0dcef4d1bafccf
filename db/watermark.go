package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SelectMax returns the largest value of keyColumn in table. ok is false when
// the table holds no rows.
func (s *Session) SelectMax(ctx context.Context, table, keyColumn string) (max int64, ok bool, err error) {
	tableID, err := s.ident(table)
	if err != nil {
		return 0, false, newError(KindSerialization, table, "select max", err)
	}
	keyID, err := s.ident(keyColumn)
	if err != nil {
		return 0, false, newError(KindSerialization, table, "select max", err)
	}

	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", keyID, tableID)
	s.logQuery(query)

	var result sql.NullInt64
	if err := s.conn.QueryRowContext(ctx, query).Scan(&result); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, s.fail(table, "select max", err)
	}
	return result.Int64, result.Valid, nil
}

// CountGreaterThan counts the rows of table whose key exceeds threshold.
func (s *Session) CountGreaterThan(ctx context.Context, table, keyColumn string, threshold int64) (int64, error) {
	tableID, err := s.ident(table)
	if err != nil {
		return 0, newError(KindSerialization, table, "count", err)
	}
	keyID, err := s.ident(keyColumn)
	if err != nil {
		return 0, newError(KindSerialization, table, "count", err)
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s > %s", tableID, keyID, s.dialect.placeholder(1))
	s.logQuery(query)

	var count int64
	if err := s.conn.QueryRowContext(ctx, query, threshold).Scan(&count); err != nil {
		return 0, s.fail(table, "count", err)
	}
	return count, nil
}
