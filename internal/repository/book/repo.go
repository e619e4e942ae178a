package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/booksrag/internal/db"
	dombook "github.com/kailas-cloud/booksrag/internal/domain/book"
)

const (
	countBooksSQL = `SELECT COUNT(*) FROM books`
	countPagesSQL = `SELECT COUNT(*) FROM pages`

	listSummariesSQL = `
SELECT CAST(b.id AS TEXT) AS book_id, b.title,
       COALESCE(MIN(p.page_no), 1) AS min_page,
       COALESCE(MAX(p.page_no), 0) AS max_page,
       COUNT(p.page_id) AS total_pages
FROM books b
LEFT JOIN pages p ON p.book_id = b.id
GROUP BY b.id, b.title
ORDER BY b.title ASC`

	uploadColumns = `title, author, isbn, publisher, year, pages,
       content_type, description, digital_price, digital_quantity,
       physical_price, physical_quantity, genres,
       allow_phone_access, allow_physical_access`

	insertUploadSQL = `
INSERT INTO booksupload (` + uploadColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at`

	listUploadsSQL = `SELECT id, created_at, ` + uploadColumns + ` FROM booksupload ORDER BY created_at DESC, id DESC`
	getUploadSQL   = `SELECT id, created_at, ` + uploadColumns + ` FROM booksupload WHERE id = ?`
)

// Placeholder selects how bind parameters are written for the driver.
type Placeholder int

const (
	// Question keeps "?" placeholders (sqlite).
	Question Placeholder = iota
	// Dollar rewrites placeholders to "$1, $2, ..." (postgres).
	Dollar
)

// Repo reads and writes book metadata. Every call runs in its own transaction.
type Repo struct {
	db          *sql.DB
	placeholder Placeholder
}

// New creates a book repository.
func New(conn *sql.DB, placeholder Placeholder) *Repo {
	return &Repo{db: conn, placeholder: placeholder}
}

// Counts returns the total number of books and pages.
func (r *Repo) Counts(ctx context.Context) (dombook.Counts, error) {
	var c dombook.Counts
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countBooksSQL).Scan(&c.Books); err != nil {
			return &db.Error{Op: db.OpCount, Err: fmt.Errorf("books: %w", err)}
		}
		if err := tx.QueryRowContext(ctx, countPagesSQL).Scan(&c.Pages); err != nil {
			return &db.Error{Op: db.OpCount, Err: fmt.Errorf("pages: %w", err)}
		}
		return nil
	})
	if err != nil {
		return dombook.Counts{}, err
	}
	return c, nil
}

// ListSummaries returns every book with its page range, ordered by title.
func (r *Repo) ListSummaries(ctx context.Context) ([]dombook.Summary, error) {
	var out []dombook.Summary
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, listSummariesSQL)
		if err != nil {
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var s dombook.Summary
			if err := rows.Scan(&s.BookID, &s.Title, &s.MinPage, &s.MaxPage, &s.TotalPages); err != nil {
				return &db.Error{Op: db.OpSelect, Err: err}
			}
			out = append(out, s)
		}
		if err := rows.Err(); err != nil {
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []dombook.Summary{}
	}
	return out, nil
}

// CreateUpload stores an uploaded-book record and returns its identity.
func (r *Repo) CreateUpload(ctx context.Context, u dombook.Upload) (dombook.StoredUpload, error) {
	stored := dombook.StoredUpload{Upload: u}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var created timestamp
		row := tx.QueryRowContext(ctx, r.rebind(insertUploadSQL),
			u.Title, u.Author, u.ISBN, u.Publisher, u.Year, u.Pages,
			u.ContentType, u.Description, u.DigitalPrice, u.DigitalQuantity,
			u.PhysicalPrice, u.PhysicalQuantity, u.JoinGenres(),
			u.AllowPhoneAccess, u.AllowPhysicalAccess,
		)
		if err := row.Scan(&stored.ID, &created); err != nil {
			return &db.Error{Op: db.OpInsert, Err: err}
		}
		stored.CreatedAt = created.Time
		return nil
	})
	if err != nil {
		return dombook.StoredUpload{}, err
	}
	return stored, nil
}

// ListUploads returns uploaded-book records, newest first.
func (r *Repo) ListUploads(ctx context.Context) ([]dombook.StoredUpload, error) {
	var out []dombook.StoredUpload
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, listUploadsSQL)
		if err != nil {
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			u, err := scanUpload(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		if err := rows.Err(); err != nil {
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []dombook.StoredUpload{}
	}
	return out, nil
}

// GetUpload returns one uploaded-book record or db.ErrNotFound.
func (r *Repo) GetUpload(ctx context.Context, id int64) (dombook.StoredUpload, error) {
	var out dombook.StoredUpload
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUpload(tx.QueryRowContext(ctx, r.rebind(getUploadSQL), id))
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return dombook.StoredUpload{}, err
	}
	return out, nil
}

// rebind rewrites "?" placeholders for the configured driver.
func (r *Repo) rebind(query string) string {
	if r.placeholder != Dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (dombook.StoredUpload, error) {
	var u dombook.StoredUpload
	var created timestamp
	var author, publisher, year, contentType, description sql.NullString
	var digitalPrice, digitalQty, physicalPrice, physicalQty, genres sql.NullString
	err := s.Scan(
		&u.ID, &created, &u.Title, &author, &u.ISBN, &publisher, &year, &u.Pages,
		&contentType, &description, &digitalPrice, &digitalQty,
		&physicalPrice, &physicalQty, &genres,
		&u.AllowPhoneAccess, &u.AllowPhysicalAccess,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return dombook.StoredUpload{}, db.ErrNotFound
	}
	if err != nil {
		return dombook.StoredUpload{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	u.CreatedAt = created.Time
	u.Author = author.String
	u.Publisher = publisher.String
	u.Year = year.String
	u.ContentType = contentType.String
	u.Description = description.String
	u.DigitalPrice = digitalPrice.String
	u.DigitalQuantity = digitalQty.String
	u.PhysicalPrice = physicalPrice.String
	u.PhysicalQuantity = physicalQty.String
	u.Genres = dombook.SplitGenres(genres.String)
	return u, nil
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpBegin, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: db.OpCommit, Err: err}
	}
	return nil
}

// timestamp scans a created_at column from drivers that return either time.Time or text.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
