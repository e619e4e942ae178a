package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/config"
	"github.com/kailas-cloud/booksrag/internal/db/qdrant"
	"github.com/kailas-cloud/booksrag/internal/db/relational"
	"github.com/kailas-cloud/booksrag/internal/db/valkey"
	logpkg "github.com/kailas-cloud/booksrag/internal/logger"
	bookrepo "github.com/kailas-cloud/booksrag/internal/repository/book"
	pointsrepo "github.com/kailas-cloud/booksrag/internal/repository/points"
	"github.com/kailas-cloud/booksrag/internal/transport/command"
	"github.com/kailas-cloud/booksrag/internal/transport/rag"
	bookuc "github.com/kailas-cloud/booksrag/internal/usecase/book"
	collectionuc "github.com/kailas-cloud/booksrag/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/booksrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/booksrag/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/booksrag/internal/usecase/query"
	"github.com/kailas-cloud/booksrag/internal/worker"
)

// ingestCollaborator is the ingestion side: it ingests staged files and declares its default collection.
type ingestCollaborator interface {
	ingestuc.Ingester
	collectionuc.Declarer
}

// app is the composition root shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	sqlDB  *sql.DB
	points *pointsrepo.Repo
	rag    *rag.Client
	pool   *worker.Pool

	resolver *collectionuc.Resolver
	query    *queryuc.Service
	ingest   *ingestuc.Service
	health   *healthuc.Service
	books    *bookuc.Service
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	sqlDB, err := relational.Open(relationalConfig(cfg.Relational))
	if err != nil {
		return nil, fmt.Errorf("relational store: %w", err)
	}
	a.sqlDB = sqlDB

	a.points, err = pointsrepo.Open(vectorConfig(cfg.Vector), logger.Named("points"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("vector store: %w", err)
	}

	a.rag, err = rag.NewClient(rag.Config{
		BaseURL:           cfg.Retrieval.BaseURL,
		Timeout:           time.Duration(cfg.Retrieval.TimeoutSec) * time.Second,
		Params:            cfg.Retrieval.Params,
		DefaultCollection: cfg.Ingest.DefaultCollection,
	}, nil)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.Retrieval.Manifest {
		mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		m, err := a.rag.LoadManifest(mctx)
		cancel()
		if err != nil {
			logger.Warn("Retrieval manifest unavailable, using declared params", zap.Error(err))
		} else {
			logger.Info("Loaded retrieval manifest", zap.Int("params", len(m.Params)))
		}
	}

	var ingester ingestCollaborator = a.rag
	if cfg.Ingest.Driver == "command" {
		ingester, err = command.New(cfg.Ingest.Command, cfg.Ingest.CommandEnv, cfg.Ingest.DefaultCollection)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	a.pool = worker.NewPool(worker.Config{
		Size:        cfg.Worker.Size,
		QueueSize:   cfg.Worker.Queue,
		ScratchRoot: cfg.Ingest.StagingDir,
	}, logger.Named("worker"))

	placeholder := bookrepo.Dollar
	if cfg.Relational.Driver == relational.DriverSQLite {
		placeholder = bookrepo.Question
	}
	books := bookrepo.New(sqlDB, placeholder)

	a.resolver = collectionuc.NewResolver(cfg.Collection.Override, ingester, cfg.Collection.Fallback)
	a.query = queryuc.New(a.rag)
	a.ingest = ingestuc.New(ingester, a.pool, cfg.Ingest.Extensions, logger.Named("ingest"))
	a.health = healthuc.New(relational.Pinger{DB: sqlDB}, books, a.points, a.resolver, logger.Named("health"))
	a.books = bookuc.New(books)
	return a, nil
}

func (a *app) close() {
	if a.points != nil {
		a.points.Close()
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
}

func relationalConfig(c config.RelationalConfig) relational.Config {
	return relational.Config{
		Driver:       c.Driver,
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Database:     c.Database,
		SSLMode:      c.SSLMode,
		Path:         c.Path,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
	}
}

func vectorConfig(c config.VectorConfig) pointsrepo.Config {
	return pointsrepo.Config{
		Backend: c.Driver,
		Qdrant: qdrant.Config{
			Host:    c.Host,
			Port:    c.Port,
			HTTPS:   c.HTTPS,
			APIKey:  c.APIKey,
			Timeout: time.Duration(c.TimeoutSec) * time.Second,
		},
		Valkey: valkey.Config{
			Addrs:      c.Addrs,
			Password:   c.Password,
			KeyPrefix:  c.KeyPrefix,
			BareSearch: c.BareSearch,
		},
	}
}
