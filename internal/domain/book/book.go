package book

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/booksrag/internal/domain"
)

const minISBNLength = 10

// Summary is one row of the aggregated book listing.
type Summary struct {
	BookID     string `json:"book_id"`
	Title      string `json:"title"`
	MinPage    int    `json:"min_page"`
	MaxPage    int    `json:"max_page"`
	TotalPages int    `json:"total_pages"`
}

// Counts holds total ingested books and pages.
type Counts struct {
	Books int `json:"books"`
	Pages int `json:"pages"`
}

// Upload is a catalogue record submitted through the upload form.
type Upload struct {
	Title               string   `json:"title"`
	Author              string   `json:"author"`
	ISBN                string   `json:"isbn"`
	Publisher           string   `json:"publisher"`
	Year                string   `json:"year"`
	Pages               int      `json:"pages"`
	ContentType         string   `json:"contentType"`
	Description         string   `json:"description"`
	DigitalPrice        string   `json:"digitalPrice"`
	DigitalQuantity     string   `json:"digitalQuantity"`
	PhysicalPrice       string   `json:"physicalPrice"`
	PhysicalQuantity    string   `json:"physicalQuantity"`
	Genres              []string `json:"genres"`
	AllowPhoneAccess    bool     `json:"allowPhoneAccess"`
	AllowPhysicalAccess bool     `json:"allowPhysicalAccess"`
}

// Validate checks the record before it is persisted.
func (u *Upload) Validate() error {
	if strings.TrimSpace(u.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(u.ISBN) < minISBNLength {
		return fmt.Errorf("%w: ISBN must be at least %d characters", domain.ErrValidation, minISBNLength)
	}
	if u.Pages <= 0 {
		return fmt.Errorf("%w: pages must be greater than 0", domain.ErrValidation)
	}
	return nil
}

// JoinGenres renders genres in their stored comma-separated form.
func (u *Upload) JoinGenres() string {
	return strings.Join(u.Genres, ",")
}

// SplitGenres parses the stored comma-separated form.
func SplitGenres(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StoredUpload is an Upload with its storage identity.
type StoredUpload struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Upload
}
