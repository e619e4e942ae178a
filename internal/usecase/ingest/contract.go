package ingest

import (
	"context"

	"github.com/kailas-cloud/booksrag/internal/worker"
)

// Ingester is the ingestion collaborator. It reads the staged document at path.
type Ingester interface {
	Ingest(ctx context.Context, path string) error
}

// Runner executes jobs inside a prepared worker environment.
type Runner interface {
	Do(ctx context.Context, job worker.Job) error
}
