package health

import (
	"context"

	"github.com/kailas-cloud/booksrag/internal/domain/book"
)

// Pinger checks store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reads book and page totals from the relational store.
type Counter interface {
	Counts(ctx context.Context) (book.Counts, error)
}

// PointCounter reads the number of stored vectors in a collection.
type PointCounter interface {
	Pinger
	CountPoints(ctx context.Context, collection string) (int, error)
}

// CollectionResolver names the collection the vector probe targets.
type CollectionResolver interface {
	Resolve() string
}
