package chi

import (
	"time"

	dombook "github.com/kailas-cloud/booksrag/internal/domain/book"
)

// uploadRow is an uploaded-book record in its stored column naming.
type uploadRow struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	Author              string    `json:"author"`
	ISBN                string    `json:"isbn"`
	Publisher           string    `json:"publisher"`
	Year                string    `json:"year"`
	Pages               int       `json:"pages"`
	ContentType         string    `json:"content_type"`
	Description         string    `json:"description"`
	DigitalPrice        string    `json:"digital_price"`
	DigitalQuantity     string    `json:"digital_quantity"`
	PhysicalPrice       string    `json:"physical_price"`
	PhysicalQuantity    string    `json:"physical_quantity"`
	Genres              string    `json:"genres"`
	AllowPhoneAccess    bool      `json:"allow_phone_access"`
	AllowPhysicalAccess bool      `json:"allow_physical_access"`
	CreatedAt           time.Time `json:"created_at"`
}

func uploadRowFromDomain(s dombook.StoredUpload) uploadRow {
	return uploadRow{
		ID:                  s.ID,
		Title:               s.Title,
		Author:              s.Author,
		ISBN:                s.ISBN,
		Publisher:           s.Publisher,
		Year:                s.Year,
		Pages:               s.Pages,
		ContentType:         s.ContentType,
		Description:         s.Description,
		DigitalPrice:        s.DigitalPrice,
		DigitalQuantity:     s.DigitalQuantity,
		PhysicalPrice:       s.PhysicalPrice,
		PhysicalQuantity:    s.PhysicalQuantity,
		Genres:              s.JoinGenres(),
		AllowPhoneAccess:    s.AllowPhoneAccess,
		AllowPhysicalAccess: s.AllowPhysicalAccess,
		CreatedAt:           s.CreatedAt,
	}
}
