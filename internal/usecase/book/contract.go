package book

import (
	"context"

	dombook "github.com/kailas-cloud/booksrag/internal/domain/book"
)

// Repository defines the storage contract for books and uploaded-book records.
type Repository interface {
	ListSummaries(ctx context.Context) ([]dombook.Summary, error)
	CreateUpload(ctx context.Context, u dombook.Upload) (dombook.StoredUpload, error)
	ListUploads(ctx context.Context) ([]dombook.StoredUpload, error)
	GetUpload(ctx context.Context, id int64) (dombook.StoredUpload, error)
}
