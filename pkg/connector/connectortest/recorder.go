// Package connectortest provides an in-memory upsert target for connector
// tests.
package connectortest

import (
	"context"
	"slices"
	"sync"

	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/store"
)

// Recorder keeps every upserted row by table and primary key, last write
// wins. It also answers LiveKeys from the recorded rows.
type Recorder struct {
	mu     sync.Mutex
	tables map[string]*table
	// FailTable makes upserts into that table fail with FailErr
	FailTable string
	FailErr   error
}

type table struct {
	columns []string
	keys    []string
	rows    map[string][]any
	order   []string
}

var (
	_ store.Upserter  = (*Recorder)(nil)
	_ store.KeyReader = (*Recorder)(nil)
)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{tables: map[string]*table{}}
}

// Writer returns an ingest.Writer over r with the given chunk size.
func (r *Recorder) Writer(size int) *ingest.Writer {
	return ingest.NewWriter(r, size)
}

func (r *Recorder) UpsertBatch(_ context.Context, b store.Batch) (int64, error) {
	if len(b.Rows) == 0 {
		return 0, nil
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Table == r.FailTable {
		return 0, r.FailErr
	}
	t, ok := r.tables[b.Table]
	if !ok {
		t = &table{columns: b.Columns, keys: b.ConflictColumns, rows: map[string][]any{}}
		r.tables[b.Table] = t
	}
	for _, row := range b.Rows {
		k := keyOf(b.Columns, b.ConflictColumns, row)
		if _, seen := t.rows[k]; !seen {
			t.order = append(t.order, k)
		}
		t.rows[k] = row
	}
	return int64(len(b.Rows)), nil
}

func (r *Recorder) Transaction(_ context.Context, fn func(store.Upserter) error) error {
	return fn(r)
}

// LiveKeys returns the distinct values of q.Column among recorded rows
// matching q.Equals, sorted.
func (r *Recorder) LiveKeys(_ context.Context, _ string, q store.KeyQuery) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[q.Table]
	if !ok {
		return nil, nil
	}
	var keys []string
	for _, k := range t.order {
		row := t.rows[k]
		if !matches(t.columns, row, q.Equals) {
			continue
		}
		if v, ok := value(t.columns, row, q.Column).(string); ok && !slices.Contains(keys, v) {
			keys = append(keys, v)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Rows returns a table's rows as column maps in first-insert order.
func (r *Recorder) Rows(tableName string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[tableName]
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(t.order))
	for _, k := range t.order {
		m := make(map[string]any, len(t.columns))
		for i, col := range t.columns {
			m[col] = t.rows[k][i]
		}
		out = append(out, m)
	}
	return out
}

// Column returns one column of a table's rows in first-insert order.
func (r *Recorder) Column(tableName, column string) []any {
	var out []any
	for _, row := range r.Rows(tableName) {
		out = append(out, row[column])
	}
	return out
}

func keyOf(columns, keys []string, row []any) string {
	var k string
	for _, col := range keys {
		v, _ := value(columns, row, col).(string)
		k += v + "\x00"
	}
	return k
}

func value(columns []string, row []any, column string) any {
	i := slices.Index(columns, column)
	if i < 0 {
		return nil
	}
	return row[i]
}

func matches(columns []string, row []any, equals map[string]string) bool {
	for col, want := range equals {
		if v, _ := value(columns, row, col).(string); v != want {
			return false
		}
	}
	return true
}
