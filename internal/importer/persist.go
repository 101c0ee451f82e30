package importer

import (
	"context"
)

// pending pairs a record ready for storage with the 1-based file row it came
// from, so persistence failures can be reported against the right row.
type pending[T any] struct {
	Row    int
	Record T
}

// persistCreates writes records in chunks using the duplicate-tolerant bulk
// path. When a chunk fails wholesale, every record in it is retried
// individually so one poisoned record costs one row, not fifty. Returns the
// number of records actually written.
func persistCreates[T any](
	ctx context.Context,
	batch []pending[T],
	size int,
	bulkInsert func(context.Context, []T) error,
	insertOne func(context.Context, T) error,
	describe func(T) any,
	res *Result,
) int {
	if size <= 0 {
		size = 50
	}
	created := 0
	for start := 0; start < len(batch); start += size {
		end := start + size
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]
		records := make([]T, len(chunk))
		for i, p := range chunk {
			records[i] = p.Record
		}
		if err := bulkInsert(ctx, records); err == nil {
			created += len(chunk)
			for _, p := range chunk {
				res.Created = append(res.Created, describe(p.Record))
			}
			continue
		}
		for _, p := range chunk {
			if err := insertOne(ctx, p.Record); err != nil {
				res.Errorf(p.Row, "", "failed to save record: %v", err)
				continue
			}
			created++
			res.Created = append(res.Created, describe(p.Record))
		}
	}
	return created
}

// persistUpdates applies updates as one transactional batch, falling back to
// per-record updates when the batch fails. Returns the number of records
// actually updated.
func persistUpdates[T any](
	ctx context.Context,
	batch []pending[T],
	updateBatch func(context.Context, []T) error,
	updateOne func(context.Context, T) error,
	res *Result,
) int {
	if len(batch) == 0 {
		return 0
	}
	records := make([]T, len(batch))
	for i, p := range batch {
		records[i] = p.Record
	}
	if err := updateBatch(ctx, records); err == nil {
		return len(batch)
	}
	updated := 0
	for _, p := range batch {
		if err := updateOne(ctx, p.Record); err != nil {
			res.Errorf(p.Row, "", "failed to update record: %v", err)
			continue
		}
		updated++
	}
	return updated
}
