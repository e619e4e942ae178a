package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/domain"
	dombook "github.com/kailas-cloud/booksrag/internal/domain/book"
	domquery "github.com/kailas-cloud/booksrag/internal/domain/query"
	bookuc "github.com/kailas-cloud/booksrag/internal/usecase/book"
	collectionuc "github.com/kailas-cloud/booksrag/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/booksrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/booksrag/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/booksrag/internal/usecase/query"
)

// DebugInfo is the connection summary served by /debug/config.
// SeedCollection is the sample-corpus collection, reported for operators.
type DebugInfo struct {
	PGUser         string
	PGDatabase     string
	PGPort         int
	QdrantHost     string
	QdrantPort     int
	SeedCollection string
}

// Options tune request handling.
type Options struct {
	MaxUploadBytes int64
	// HideCollaboratorErrors replaces collaborator error text with a generic message.
	HideCollaboratorErrors bool
	// EnvKeys are reported by /debug/query-env.
	EnvKeys []string
	Debug   DebugInfo
}

// Services groups the use cases the server dispatches to.
type Services struct {
	Query      *queryuc.Service
	Ingest     *ingestuc.Service
	Health     *healthuc.Service
	Books      *bookuc.Service
	Collection *collectionuc.Resolver
}

// Server holds the HTTP handlers.
type Server struct {
	query         *queryuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	books         *bookuc.Service
	collection    *collectionuc.Resolver
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	s := &Server{
		query:      svc.Query,
		ingest:     svc.Ingest,
		health:     svc.Health,
		books:      svc.Books,
		collection: svc.Collection,
		opts:       opts,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		unsupportedMediaHandler,
		payloadTooLargeHandler,
		sentinelHandler(domain.ErrValidation, http.StatusUnprocessableEntity, CodeValidationFailed, ""),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound, "Book not found"),
		collaboratorHandler(opts.HideCollaboratorErrors),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/query", s.Query)
	r.Post("/ingest/pdf", s.IngestPDF)

	r.Get("/books", s.ListBooks)
	r.Post("/booksUpload", s.CreateBookUpload)
	r.Get("/booksUpload", s.ListBookUploads)
	r.Get("/booksUpload/{id}", s.GetBookUpload)

	r.Route("/debug", func(r chi.Router) {
		r.Get("/state", s.DebugState)
		r.Get("/config", s.DebugConfig)
		r.Get("/query-env", s.DebugQueryEnv)
		r.Get("/qdrant-count", s.DebugCollectionCount)
		r.Get("/query-signature", s.DebugQuerySignature)
		r.Post("/query-dry-kwargs", s.DebugQueryDryRun)
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Query handles POST /query. The collaborator's JSON result is passed through unchanged.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	out, err := s.query.Query(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// IngestPDF handles POST /ingest/pdf with a multipart "file" field.
func (s *Server) IngestPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Expected multipart/form-data: "+err.Error())
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, "Missing form field \"file\"")
			return
		}
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		res, err := s.ingest.IngestUpload(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, ingestResponse{
			FileName: res.FileName,
			Ingested: res.Ingested,
			JobID:    res.JobID.String(),
			Bytes:    res.Bytes,
		})
		return
	}
}

// ListBooks handles GET /books.
func (s *Server) ListBooks(w http.ResponseWriter, r *http.Request) {
	items, err := s.books.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// CreateBookUpload handles POST /booksUpload.
func (s *Server) CreateBookUpload(w http.ResponseWriter, r *http.Request) {
	var u dombook.Upload
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}

	stored, err := s.books.CreateUpload(r.Context(), u)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, createUploadResponse{
		Message:   "Book uploaded successfully",
		BookID:    stored.ID,
		CreatedAt: stored.CreatedAt,
		Data:      u,
	})
}

// ListBookUploads handles GET /booksUpload.
func (s *Server) ListBookUploads(w http.ResponseWriter, r *http.Request) {
	items, err := s.books.ListUploads(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rows := make([]uploadRow, len(items))
	for i, it := range items {
		rows[i] = uploadRowFromDomain(it)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

// GetBookUpload handles GET /booksUpload/{id}.
func (s *Server) GetBookUpload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, "book id must be an integer")
		return
	}

	item, err := s.books.GetUpload(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": uploadRowFromDomain(item)})
}

// DebugState handles GET /debug/state. Store failures are embedded; the status is always 200.
func (s *Server) DebugState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Report(r.Context()))
}

// DebugConfig handles GET /debug/config.
func (s *Server) DebugConfig(w http.ResponseWriter, _ *http.Request) {
	d := s.opts.Debug
	writeJSON(w, http.StatusOK, debugConfigResponse{
		PGUser:           d.PGUser,
		PGDatabase:       d.PGDatabase,
		PGPort:           d.PGPort,
		QdrantHost:       d.QdrantHost,
		QdrantPort:       d.QdrantPort,
		QdrantCollection: s.collection.Resolve(),
		SeedCollection:   d.SeedCollection,
		Sources:          s.collection.Sources(),
	})
}

// DebugQueryEnv handles GET /debug/query-env. Unset variables are reported as null.
func (s *Server) DebugQueryEnv(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]*string, len(s.opts.EnvKeys))
	for _, k := range s.opts.EnvKeys {
		if v, ok := os.LookupEnv(k); ok {
			out[k] = &v
		} else {
			out[k] = nil
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// DebugCollectionCount handles GET /debug/qdrant-count?collection=.
// A failed count is embedded in the body.
func (s *Server) DebugCollectionCount(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("collection"))
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, "query parameter \"collection\" is required")
		return
	}
	writeJSON(w, http.StatusOK, s.health.CountCollection(r.Context(), name))
}

// DebugQuerySignature handles GET /debug/query-signature.
func (s *Server) DebugQuerySignature(w http.ResponseWriter, _ *http.Request) {
	sig, params := s.query.Signature()
	writeJSON(w, http.StatusOK, map[string]any{
		"signature": sig,
		"params":    params,
	})
}

// DebugQueryDryRun handles POST /debug/query-dry-kwargs.
func (s *Server) DebugQueryDryRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	preview, err := s.query.Preview(req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (domquery.Request, bool) {
	var req domquery.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, "Invalid request body: "+err.Error())
		return domquery.Request{}, false
	}
	return req, true
}

type ingestResponse struct {
	FileName string `json:"filename"`
	Ingested bool   `json:"ingested"`
	JobID    string `json:"job_id"`
	Bytes    int64  `json:"bytes"`
}

type createUploadResponse struct {
	Message   string         `json:"message"`
	BookID    int64          `json:"book_id"`
	CreatedAt time.Time      `json:"created_at"`
	Data      dombook.Upload `json:"data"`
}

type debugConfigResponse struct {
	PGUser           string               `json:"pguser"`
	PGDatabase       string               `json:"pgdatabase"`
	PGPort           int                  `json:"pgport"`
	QdrantHost       string               `json:"qdrant_host"`
	QdrantPort       int                  `json:"qdrant_port"`
	QdrantCollection string               `json:"qdrant_collection"`
	SeedCollection   string               `json:"qdrant_seed_collection,omitempty"`
	Sources          collectionuc.Sources `json:"collection_sources"`
}
