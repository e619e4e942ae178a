package book

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/booksrag/internal/db"
	"github.com/kailas-cloud/booksrag/internal/domain"
	dombook "github.com/kailas-cloud/booksrag/internal/domain/book"
)

// Service handles book listing and uploaded-book records.
type Service struct {
	repo Repository
}

// New creates a book service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a summary per ingested book.
func (s *Service) List(ctx context.Context) ([]dombook.Summary, error) {
	items, err := s.repo.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return items, nil
}

// CreateUpload validates and stores an uploaded-book record.
func (s *Service) CreateUpload(ctx context.Context, u dombook.Upload) (dombook.StoredUpload, error) {
	if err := u.Validate(); err != nil {
		return dombook.StoredUpload{}, err
	}
	stored, err := s.repo.CreateUpload(ctx, u)
	if err != nil {
		return dombook.StoredUpload{}, fmt.Errorf("create upload: %w", err)
	}
	return stored, nil
}

// ListUploads returns every uploaded-book record, newest first.
func (s *Service) ListUploads(ctx context.Context) ([]dombook.StoredUpload, error) {
	items, err := s.repo.ListUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return items, nil
}

// GetUpload returns one uploaded-book record.
func (s *Service) GetUpload(ctx context.Context, id int64) (dombook.StoredUpload, error) {
	item, err := s.repo.GetUpload(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return dombook.StoredUpload{}, fmt.Errorf("upload %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return dombook.StoredUpload{}, fmt.Errorf("get upload: %w", err)
	}
	return item, nil
}
