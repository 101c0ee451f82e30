package importer

import (
	"context"
	"fmt"
	"testing"
)

type widget struct {
	Name string
}

func TestPersistCreatesChunks(t *testing.T) {
	batch := make([]pending[widget], 7)
	for i := range batch {
		batch[i] = pending[widget]{Row: i + 1, Record: widget{Name: fmt.Sprintf("w%d", i+1)}}
	}

	var chunks [][]widget
	res := newResult(7, 100)
	created := persistCreates(context.Background(), batch, 3,
		func(ctx context.Context, ws []widget) error {
			chunks = append(chunks, ws)
			return nil
		},
		func(ctx context.Context, w widget) error {
			t.Fatal("single-record path must not run when bulk succeeds")
			return nil
		},
		func(w widget) any { return w.Name },
		res)

	if created != 7 {
		t.Fatalf("created = %d", created)
	}
	if len(chunks) != 3 || len(chunks[0]) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunking: %v", chunks)
	}
	if len(res.Created) != 7 {
		t.Fatalf("created descriptions = %d", len(res.Created))
	}
}

func TestPersistCreatesFallsBackPerRecord(t *testing.T) {
	batch := []pending[widget]{
		{Row: 1, Record: widget{Name: "good-1"}},
		{Row: 2, Record: widget{Name: "poison"}},
		{Row: 3, Record: widget{Name: "good-2"}},
	}

	res := newResult(3, 100)
	created := persistCreates(context.Background(), batch, 50,
		func(ctx context.Context, ws []widget) error {
			return fmt.Errorf("chunk rejected")
		},
		func(ctx context.Context, w widget) error {
			if w.Name == "poison" {
				return fmt.Errorf("constraint violation")
			}
			return nil
		},
		func(w widget) any { return w.Name },
		res)

	if created != 2 {
		t.Fatalf("created = %d", created)
	}
	if res.Summary.Errors != 1 || len(res.Errors) != 1 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	if res.Errors[0].Row != 2 {
		t.Fatalf("error attributed to row %d, want 2", res.Errors[0].Row)
	}
	if len(res.Created) != 2 {
		t.Fatalf("created descriptions = %d", len(res.Created))
	}
}

func TestPersistCreatesDefaultChunkSize(t *testing.T) {
	batch := make([]pending[widget], 60)
	for i := range batch {
		batch[i] = pending[widget]{Row: i + 1}
	}
	var sizes []int
	res := newResult(60, 100)
	persistCreates(context.Background(), batch, 0,
		func(ctx context.Context, ws []widget) error {
			sizes = append(sizes, len(ws))
			return nil
		},
		func(ctx context.Context, w widget) error { return nil },
		func(w widget) any { return nil },
		res)
	if len(sizes) != 2 || sizes[0] != 50 || sizes[1] != 10 {
		t.Fatalf("unexpected chunk sizes: %v", sizes)
	}
}

func TestPersistUpdatesFallsBackPerRecord(t *testing.T) {
	batch := []pending[widget]{
		{Row: 4, Record: widget{Name: "good"}},
		{Row: 9, Record: widget{Name: "poison"}},
	}

	res := newResult(2, 100)
	updated := persistUpdates(context.Background(), batch,
		func(ctx context.Context, ws []widget) error {
			return fmt.Errorf("batch rejected")
		},
		func(ctx context.Context, w widget) error {
			if w.Name == "poison" {
				return fmt.Errorf("constraint violation")
			}
			return nil
		},
		res)

	if updated != 1 {
		t.Fatalf("updated = %d", updated)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 9 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
}

func TestPersistUpdatesEmptyBatch(t *testing.T) {
	res := newResult(0, 100)
	updated := persistUpdates(context.Background(), nil,
		func(ctx context.Context, ws []widget) error {
			t.Fatal("batch path must not run for an empty batch")
			return nil
		},
		func(ctx context.Context, w widget) error { return nil },
		res)
	if updated != 0 {
		t.Fatalf("updated = %d", updated)
	}
}
