package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/domain/status"
	"github.com/kailas-cloud/booksrag/internal/metrics"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// CollectionCount is the point count of one collection, or the error reading it.
type CollectionCount struct {
	Collection string `json:"collection"`
	Points     *int   `json:"points,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Service probes the relational and vector stores.
type Service struct {
	db         Pinger
	counter    Counter
	vector     PointCounter
	collection CollectionResolver
	logger     *zap.Logger
}

// New creates a Service.
func New(db Pinger, counter Counter, vector PointCounter, collection CollectionResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, counter: counter, vector: vector, collection: collection, logger: logger}
}

// Check pings both stores.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		"database": probe(s.db.Ping(ctx)),
		"vector":   probe(s.vector.Ping(ctx)),
	}

	overall := Healthy
	for _, v := range checks {
		if v == CheckError {
			overall = Degraded
			break
		}
	}

	return Report{Status: overall, Checks: checks}
}

func probe(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

// Report reads relational counts and then the vector point count. Each store is
// queried at most once; when the relational read fails the vector store is not queried.
// Failures are reported in the result, never returned.
func (s *Service) Report(ctx context.Context) status.Consistency {
	counts, err := s.counter.Counts(ctx)
	if err != nil {
		s.logger.Warn("consistency probe: relational store failed", zap.Error(err))
		metrics.ConsistencyChecksTotal.WithLabelValues("db_error").Inc()
		return status.DBFailed(err)
	}

	name := s.collection.Resolve()
	points, err := s.vector.CountPoints(ctx, name)
	if err != nil {
		s.logger.Warn("consistency probe: vector store failed",
			zap.String("collection", name), zap.Error(err))
		metrics.ConsistencyChecksTotal.WithLabelValues("vector_error").Inc()
		return status.VectorFailed(err)
	}

	metrics.ConsistencyChecksTotal.WithLabelValues("ok").Inc()
	return status.OK(
		status.DBCounts{Books: counts.Books, Pages: counts.Pages},
		status.VectorCount{Collection: name, Points: points},
	)
}

// CountCollection reads the point count of an arbitrary collection.
func (s *Service) CountCollection(ctx context.Context, name string) CollectionCount {
	n, err := s.vector.CountPoints(ctx, name)
	if err != nil {
		return CollectionCount{Collection: name, Error: err.Error()}
	}
	return CollectionCount{Collection: name, Points: &n}
}
