package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/andys/stageload/db"
)

type memTable struct {
	columns db.ColumnSet
	rows    []db.Row
}

// memStore is an in-memory stand-in for either side of the transfer.
type memStore struct {
	mu       sync.Mutex
	tables   map[string]*memTable
	calls    []string
	trace    *[]string
	acquired int
	released int

	acquireErr error
	listErr    error
	selectErr  error
	maxErr     error
	insertErr  error

	// Block until the context ends, then fail with its error
	blockMax    bool
	blockSelect bool
	blockInsert bool
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string]*memTable)}
}

func (m *memStore) addTable(name string, columns ...string) *memTable {
	t := &memTable{columns: db.ColumnSet(columns)}
	m.tables[name] = t
	return t
}

func (m *memStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.trace != nil {
		*m.trace = append(*m.trace, call)
	}
}

func (m *memStore) sourceFunc() SourceFunc {
	return func(ctx context.Context) (Source, error) {
		if m.acquireErr != nil {
			return nil, m.acquireErr
		}
		m.mu.Lock()
		m.acquired++
		m.mu.Unlock()
		return &memSession{store: m}, nil
	}
}

func (m *memStore) destinationFunc() DestinationFunc {
	return func(ctx context.Context) (Destination, error) {
		if m.acquireErr != nil {
			return nil, m.acquireErr
		}
		m.mu.Lock()
		m.acquired++
		m.mu.Unlock()
		return &memSession{store: m}, nil
	}
}

type memSession struct {
	store *memStore
}

func (s *memSession) Release() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.released++
	return nil
}

func (s *memSession) ListColumns(ctx context.Context, table string) (db.ColumnSet, error) {
	s.store.record("list")
	if s.store.listErr != nil {
		return nil, s.store.listErr
	}
	t, ok := s.store.tables[table]
	if !ok {
		return db.ColumnSet{}, nil
	}
	return append(db.ColumnSet{}, t.columns...), nil
}

func (s *memSession) SelectWhereGreaterThan(ctx context.Context, table string, columns db.ColumnSet, keyColumn string, threshold int64) ([]db.Row, error) {
	s.store.record("select")
	if s.store.blockSelect {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.store.selectErr != nil {
		return nil, s.store.selectErr
	}
	t := s.store.tables[table]
	idx := indexOf(t.columns, keyColumn)
	out := make([]db.Row, 0)
	for _, row := range t.rows {
		if row[idx].(int64) > threshold {
			out = append(out, project(t.columns, row, columns))
		}
	}
	return out, nil
}

func (s *memSession) SelectMax(ctx context.Context, table, keyColumn string) (int64, bool, error) {
	s.store.record("max")
	if s.store.blockMax {
		<-ctx.Done()
		return 0, false, ctx.Err()
	}
	if s.store.maxErr != nil {
		return 0, false, s.store.maxErr
	}
	t, ok := s.store.tables[table]
	if !ok {
		return 0, false, &db.Error{Kind: db.KindQueryExecution, Table: table, Op: "select max", Err: errors.New("no such table")}
	}
	idx := indexOf(t.columns, keyColumn)
	if idx < 0 {
		return 0, false, &db.Error{Kind: db.KindSchemaMismatch, Table: table, Op: "select max", Err: errors.New("no such column")}
	}
	var max int64
	found := false
	for _, row := range t.rows {
		if v := row[idx].(int64); !found || v > max {
			max, found = v, true
		}
	}
	return max, found, nil
}

func (s *memSession) InsertBatch(ctx context.Context, batch db.Batch) (int64, error) {
	s.store.record("insert")
	if s.store.blockInsert {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if s.store.insertErr != nil {
		return 0, s.store.insertErr
	}
	t := s.store.tables[batch.Table]
	for _, row := range batch.Rows {
		t.rows = append(t.rows, project(batch.Columns, row, t.columns))
	}
	return int64(len(batch.Rows)), nil
}

func indexOf(columns db.ColumnSet, name string) int {
	for i, col := range columns {
		if col == name {
			return i
		}
	}
	return -1
}

func project(from db.ColumnSet, row db.Row, to db.ColumnSet) db.Row {
	out := make(db.Row, len(to))
	for i, col := range to {
		if j := indexOf(from, col); j >= 0 {
			out[i] = row[j]
		}
	}
	return out
}
