package store

import (
	"context"
	"errors"
)

// ChunkRange calls fn for consecutive [start, end) windows of at most
// chunkSize elements. It stops at the first error.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// WithTx runs fn inside a transaction on s. The transaction is committed when
// fn returns nil and rolled back otherwise.
func WithTx(ctx context.Context, s GraphStore, fn func(tx GraphTx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
