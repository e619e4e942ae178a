package query

import (
	"context"
	"encoding/json"

	domquery "github.com/kailas-cloud/booksrag/internal/domain/query"
)

// Retriever is the retrieval collaborator.
type Retriever interface {
	// Params declares the parameter names the collaborator accepts. It may change between calls.
	Params() domquery.ParameterSet
	Query(ctx context.Context, call domquery.Call) (json.RawMessage, error)
}
