package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// PageSize is the number of rows written per INSERT statement.
const PageSize = 500

// ErrInvalidBatch is returned when a batch cannot be turned into a statement.
var ErrInvalidBatch = errors.New("invalid batch")

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Batch is a set of rows upserted into one table, keyed by ConflictColumns.
// On conflict only UpdateColumns are refreshed, along with updated_at and
// last_synced_at.
type Batch struct {
	Table           string
	Columns         []string
	Rows            [][]any
	ConflictColumns []string
	UpdateColumns   []string
}

// Validate checks identifiers and row shapes.
func (b Batch) Validate() error {
	if !identifierPattern.MatchString(b.Table) {
		return fmt.Errorf("%w: table name %q", ErrInvalidBatch, b.Table)
	}
	if len(b.Columns) == 0 {
		return fmt.Errorf("%w: no columns for %s", ErrInvalidBatch, b.Table)
	}
	if len(b.ConflictColumns) == 0 {
		return fmt.Errorf("%w: no conflict columns for %s", ErrInvalidBatch, b.Table)
	}
	for _, col := range b.Columns {
		if !identifierPattern.MatchString(col) {
			return fmt.Errorf("%w: column name %q", ErrInvalidBatch, col)
		}
	}
	for _, col := range b.ConflictColumns {
		if !slices.Contains(b.Columns, col) {
			return fmt.Errorf("%w: conflict column %q not in columns", ErrInvalidBatch, col)
		}
	}
	for _, col := range b.UpdateColumns {
		if !slices.Contains(b.Columns, col) {
			return fmt.Errorf("%w: update column %q not in columns", ErrInvalidBatch, col)
		}
	}
	for i, row := range b.Rows {
		if len(row) != len(b.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidBatch, i, len(row), len(b.Columns))
		}
	}
	return nil
}

// Pages splits the rows into chunks of at most size rows.
func (b Batch) Pages(size int) [][][]any {
	if size <= 0 {
		size = PageSize
	}
	var pages [][][]any
	for start := 0; start < len(b.Rows); start += size {
		end := min(start+size, len(b.Rows))
		pages = append(pages, b.Rows[start:end])
	}
	return pages
}

// JSON serializes a raw provider payload for a jsonb column. A nil payload
// becomes an empty object.
func JSON(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "{}"
	}
	return string(data)
}

// Counts maps an entity type (or result label) to a record count.
type Counts map[string]int64

// Total sums all counts.
func (c Counts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Merge adds other's counts into c.
func (c Counts) Merge(other Counts) {
	for k, n := range other {
		c[k] += n
	}
}
