package pipeline

import (
	"context"
	"fmt"
)

type Ingester interface {
	Ingest(ctx context.Context, owner Owner, raws []any) (Result, error)
}

// Registry dispatches a batch to the ingester of its kind. Entries are the
// decoded JSON array elements, objects or not.
type Registry map[Kind]Ingester

func (r Registry) IngestBatch(ctx context.Context, owner Owner, kind Kind, raws []any) (Result, error) {
	ing, ok := r[kind]
	if !ok {
		return Result{}, fmt.Errorf("unknown record kind %q", kind)
	}
	return ing.Ingest(ctx, owner, raws)
}
