package ingest

import (
	"context"

	"github.com/alxnderia/ingestion/pkg/store"
)

// Writer upserts connector batches in chunks of the configured size, one
// transaction per chunk.
type Writer struct {
	upserter store.Upserter
	size     int
}

// NewWriter creates a Writer. A non-positive size falls back to
// store.PageSize.
func NewWriter(upserter store.Upserter, size int) *Writer {
	if size <= 0 {
		size = store.PageSize
	}
	return &Writer{upserter: upserter, size: size}
}

// Write upserts b and returns the rows affected. Chunks committed before a
// failure stay committed.
func (w *Writer) Write(ctx context.Context, b store.Batch) (int64, error) {
	var total int64
	for _, rows := range b.Pages(w.size) {
		chunk := b
		chunk.Rows = rows
		err := w.upserter.Transaction(ctx, func(tx store.Upserter) error {
			n, err := tx.UpsertBatch(ctx, chunk)
			if err != nil {
				return err
			}
			total += n
			return nil
		})
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
