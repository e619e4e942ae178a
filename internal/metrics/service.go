package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service-level Prometheus metrics.
var (
	QueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booksrag",
			Name:      "query_requests_total",
			Help:      "Total number of query requests forwarded to the retrieval collaborator",
		},
		[]string{"status"}, // "ok" / "invalid" / "collaborator_error"
	)

	QueryDroppedFieldsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booksrag",
			Name:      "query_dropped_fields_total",
			Help:      "Payload fields dropped because the retrieval collaborator does not accept them",
		},
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booksrag",
			Name:      "ingest_total",
			Help:      "Total number of document uploads by outcome",
		},
		[]string{"status"}, // "ok" / "rejected" / "staging_error" / "collaborator_error"
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "booksrag",
			Name:      "ingest_duration_seconds",
			Help:      "Time spent staging and ingesting an upload",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	IngestBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booksrag",
			Name:      "ingest_bytes_total",
			Help:      "Total bytes staged for ingestion",
		},
	)

	ConsistencyChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booksrag",
			Name:      "consistency_checks_total",
			Help:      "Consistency probes by result",
		},
		[]string{"result"}, // "ok" / "db_error" / "vector_error"
	)
)

var serviceMetricsRegistered bool

// RegisterServiceMetrics registers the service metrics. Must be called once from main.
func RegisterServiceMetrics() {
	if serviceMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryRequestsTotal)
	prometheus.MustRegister(QueryDroppedFieldsTotal)
	prometheus.MustRegister(IngestTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(IngestBytesTotal)
	prometheus.MustRegister(ConsistencyChecksTotal)
	serviceMetricsRegistered = true
}
