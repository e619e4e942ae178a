package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/booksrag/internal/domain"
	domquery "github.com/kailas-cloud/booksrag/internal/domain/query"
	"github.com/kailas-cloud/booksrag/internal/metrics"
)

// Service adapts client payloads to the retrieval collaborator and forwards them.
type Service struct {
	retriever Retriever
}

// New creates a query service.
func New(retriever Retriever) *Service {
	return &Service{retriever: retriever}
}

// Query adapts req against the collaborator's current parameter set and forwards the result unchanged.
func (s *Service) Query(ctx context.Context, req domquery.Request) (json.RawMessage, error) {
	accepted := s.retriever.Params()

	call, err := domquery.Adapt(req, accepted)
	if err != nil {
		metrics.QueryRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if dropped := domquery.Dropped(req, accepted); len(dropped) > 0 {
		metrics.QueryDroppedFieldsTotal.Add(float64(len(dropped)))
	}

	out, err := s.retriever.Query(ctx, call)
	if err != nil {
		metrics.QueryRequestsTotal.WithLabelValues("collaborator_error").Inc()
		return nil, fmt.Errorf("run query: %w", domain.NewCollaboratorError(domain.CollaboratorRetrieval, err))
	}

	metrics.QueryRequestsTotal.WithLabelValues("ok").Inc()
	return out, nil
}

// Preview computes what Query would forward for req, without calling the collaborator.
func (s *Service) Preview(req domquery.Request) (domquery.Preview, error) {
	return domquery.NewPreview(req, s.retriever.Params())
}

// Signature describes the collaborator's current parameter set.
func (s *Service) Signature() (string, []domquery.Param) {
	params := s.retriever.Params()
	return params.Signature(), params.Params()
}
