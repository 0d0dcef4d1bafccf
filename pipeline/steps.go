package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/andys/stageload/db"
)

// Source is a borrowed connection to the transactional store.
type Source interface {
	ListColumns(ctx context.Context, table string) (db.ColumnSet, error)
	SelectWhereGreaterThan(ctx context.Context, table string, columns db.ColumnSet, keyColumn string, threshold int64) ([]db.Row, error)
	Release() error
}

// Destination is a borrowed connection to the staging store.
type Destination interface {
	SelectMax(ctx context.Context, table, keyColumn string) (int64, bool, error)
	InsertBatch(ctx context.Context, batch db.Batch) (int64, error)
	Release() error
}

var errNoRows = errors.New("load called with an empty batch")

// ResolveWatermark asks the destination for the highest key of the table.
// An empty table, or a maximum below zero, resolves to zero.
func ResolveWatermark(ctx context.Context, dest Destination, desc TableDescriptor) (Watermark, error) {
	max, ok, err := dest.SelectMax(ctx, desc.Name, desc.KeyColumn)
	if err != nil {
		return Watermark{}, withKind(err, db.KindDestinationConnection, desc.Name, "select max")
	}
	if !ok || max < 0 {
		max = 0
	}
	return Watermark{Table: desc.Name, LastSeenID: max}, nil
}

// InspectSchema reads the live column list of the source table and returns
// it with the source's spelling of the key column.
func InspectSchema(ctx context.Context, src Source, desc TableDescriptor, caseSensitive bool) (db.ColumnSet, string, error) {
	columns, err := src.ListColumns(ctx, desc.Name)
	if err != nil {
		return nil, "", withKind(err, db.KindSourceConnection, desc.Name, "list columns")
	}
	if len(columns) == 0 {
		return nil, "", schemaMismatch(desc.Name, fmt.Errorf("source table %s not found", desc.Name))
	}
	if dup, found := columns.Duplicate(); found {
		return nil, "", schemaMismatch(desc.Name, fmt.Errorf("duplicate column %s", dup))
	}
	key, found := columns.Lookup(desc.KeyColumn, caseSensitive)
	if !found {
		return nil, "", schemaMismatch(desc.Name, fmt.Errorf("key column %s not in source columns", desc.KeyColumn))
	}
	return columns, key, nil
}

// Extract reads every source row above the watermark.
func Extract(ctx context.Context, src Source, desc TableDescriptor, columns db.ColumnSet, keyColumn string, wm Watermark) (db.Batch, error) {
	rows, err := src.SelectWhereGreaterThan(ctx, desc.Name, columns, keyColumn, wm.LastSeenID)
	if err != nil {
		return db.Batch{}, withKind(err, db.KindQueryExecution, desc.Name, "extract")
	}
	return db.Batch{Table: desc.Name, Columns: columns, Rows: rows}, nil
}

// Load commits batch to the destination. The batch must not be empty.
func Load(ctx context.Context, dest Destination, batch db.Batch) (int64, error) {
	if len(batch.Rows) == 0 {
		return 0, &db.Error{Kind: db.KindQueryExecution, Table: batch.Table, Op: "insert", Err: errNoRows}
	}
	n, err := dest.InsertBatch(ctx, batch)
	if err != nil {
		return 0, withKind(err, db.KindQueryExecution, batch.Table, "insert")
	}
	return n, nil
}

func schemaMismatch(table string, err error) error {
	return &db.Error{Kind: db.KindSchemaMismatch, Table: table, Op: "inspect schema", Err: err}
}

// withKind leaves classified errors alone and tags anything else with the
// step's fallback kind.
func withKind(err error, fallback db.ErrorKind, table, op string) error {
	if db.KindOf(err) != "" {
		return err
	}
	return &db.Error{Kind: fallback, Table: table, Op: op, Err: err}
}
