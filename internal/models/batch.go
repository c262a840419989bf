package models

import "context"

type batchKey struct{}

// WithImportBatch tags ctx with the ID of the statement import in progress.
func WithImportBatch(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchKey{}, id)
}

// ImportBatchFrom returns the import batch ID carried by ctx, or "".
func ImportBatchFrom(ctx context.Context) string {
	id, _ := ctx.Value(batchKey{}).(string)
	return id
}
