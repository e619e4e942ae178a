package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/domain"
	"github.com/kailas-cloud/booksrag/internal/metrics"
	"github.com/kailas-cloud/booksrag/internal/worker"
)

// DefaultExtensions is the accepted document extension set when none is configured.
var DefaultExtensions = []string{".pdf"}

// Result describes one completed ingestion.
type Result struct {
	JobID    uuid.UUID
	FileName string
	Ingested bool
	Bytes    int64
	Duration time.Duration
}

// Service stages uploads and hands them to the ingestion collaborator on a worker.
type Service struct {
	ingester   Ingester
	runner     Runner
	extensions []string
	logger     *zap.Logger
}

// New creates an ingestion service. Extensions are matched case-insensitively;
// an empty list means DefaultExtensions.
func New(ingester Ingester, runner Runner, extensions []string, logger *zap.Logger) *Service {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	norm := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		norm = append(norm, e)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ingester: ingester, runner: runner, extensions: norm, logger: logger}
}

// Extensions returns the accepted extensions.
func (s *Service) Extensions() []string {
	out := make([]string, len(s.extensions))
	copy(out, s.extensions)
	return out
}

// IngestUpload stages body under a worker's scratch dir and runs the ingestion collaborator on it.
// The staged file is removed on every path. Cancelling ctx does not abort a started ingestion.
func (s *Service) IngestUpload(ctx context.Context, fileName string, body io.Reader) (Result, error) {
	ext, ok := s.accept(fileName)
	if !ok {
		metrics.IngestTotal.WithLabelValues("rejected").Inc()
		return Result{}, &domain.UnsupportedMediaError{FileName: fileName, Accepted: s.Extensions()}
	}

	res := Result{JobID: uuid.New(), FileName: fileName}
	start := time.Now()

	err := s.runner.Do(context.WithoutCancel(ctx), func(ctx context.Context, env *worker.Env) error {
		log := env.Logger.With(zap.String("job_id", res.JobID.String()), zap.String("filename", fileName))

		n, path, err := stage(env.ScratchDir, ext, body)
		if path != "" {
			defer func() {
				if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
					log.Warn("remove staged file", zap.String("path", path), zap.Error(rmErr))
				}
			}()
		}
		res.Bytes = n
		if err != nil {
			return err
		}

		log.Info("ingesting staged upload", zap.Int64("bytes", n))
		if err := s.ingester.Ingest(ctx, path); err != nil {
			return domain.NewCollaboratorError(domain.CollaboratorIngestion, err)
		}
		return nil
	})

	res.Duration = time.Since(start)
	metrics.IngestDuration.Observe(res.Duration.Seconds())
	metrics.IngestBytesTotal.Add(float64(res.Bytes))

	if err != nil {
		if errors.Is(err, domain.ErrCollaborator) {
			metrics.IngestTotal.WithLabelValues("collaborator_error").Inc()
		} else {
			metrics.IngestTotal.WithLabelValues("staging_error").Inc()
		}
		return res, fmt.Errorf("ingest %s: %w", fileName, err)
	}

	metrics.IngestTotal.WithLabelValues("ok").Inc()
	res.Ingested = true
	return res, nil
}

func (s *Service) accept(fileName string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return "", false
	}
	for _, e := range s.extensions {
		if e == ext {
			return ext, true
		}
	}
	return "", false
}

// stage copies body into a new file under dir. path is set whenever the file was created,
// even if copying failed, so the caller can remove it.
func stage(dir, ext string, body io.Reader) (n int64, path string, err error) {
	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return 0, "", fmt.Errorf("create staged file: %w", err)
	}
	path = f.Name()

	n, err = io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, path, fmt.Errorf("write staged file: %w", err)
	}
	return n, path, nil
}
