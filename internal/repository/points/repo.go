// Package points reads vector counts from whichever vector store backend is configured.
package points

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/db"
	"github.com/kailas-cloud/booksrag/internal/db/qdrant"
	"github.com/kailas-cloud/booksrag/internal/db/valkey"
)

// Backend names.
const (
	BackendQdrant = "qdrant"
	BackendValkey = "valkey"
)

// Config selects and configures the backend.
type Config struct {
	Backend string
	Qdrant  qdrant.Config
	Valkey  valkey.Config
}

// store is the consumer interface for a vector backend.
type store interface {
	Ping(ctx context.Context) error
	CountPoints(ctx context.Context, collection string) (int, error)
}

// Repo implements usecase/health.PointCounter.
type Repo struct {
	store   store
	backend string
	logger  *zap.Logger
	closeFn func()
}

// New wraps an already constructed backend.
func New(s store, backend string, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, backend: backend, logger: logger, closeFn: func() {}}
}

// Open constructs the configured backend.
func Open(cfg Config, logger *zap.Logger) (*Repo, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendQdrant:
		c, err := qdrant.NewClient(cfg.Qdrant)
		if err != nil {
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		return New(c, BackendQdrant, logger), nil
	case BackendValkey, "redis":
		s, err := valkey.NewStore(cfg.Valkey)
		if err != nil {
			return nil, fmt.Errorf("valkey: %w", err)
		}
		r := New(s, BackendValkey, logger)
		r.closeFn = s.Close
		return r, nil
	default:
		return nil, fmt.Errorf("vector backend %q: %w", cfg.Backend, db.ErrUnknownDriver)
	}
}

// Backend returns the backend name.
func (r *Repo) Backend() string { return r.backend }

// Ping checks backend connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// CountPoints returns the number of vectors stored in collection.
func (r *Repo) CountPoints(ctx context.Context, collection string) (int, error) {
	if strings.TrimSpace(collection) == "" {
		return 0, errors.New("collection name is required")
	}

	start := time.Now()
	n, err := r.store.CountPoints(ctx, collection)
	if err != nil {
		if errors.Is(err, db.ErrCollectionAbsent) {
			return 0, fmt.Errorf("collection %q does not exist: %w", collection, err)
		}
		return 0, fmt.Errorf("count points in %q: %w", collection, err)
	}

	r.logger.Debug("counted points",
		zap.String("backend", r.backend),
		zap.String("collection", collection),
		zap.Int("points", n),
		zap.Duration("took", time.Since(start)),
	)
	return n, nil
}

// Close releases backend connections.
func (r *Repo) Close() { r.closeFn() }
