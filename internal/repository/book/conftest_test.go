package book

import (
	"database/sql"
	"testing"

	"github.com/kailas-cloud/booksrag/internal/db/relational"
)

const testSchema = `
CREATE TABLE books (
	id    INTEGER PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE pages (
	page_id INTEGER PRIMARY KEY,
	book_id INTEGER NOT NULL REFERENCES books(id),
	page_no INTEGER NOT NULL
);
CREATE TABLE booksupload (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	title                 TEXT NOT NULL,
	author                TEXT,
	isbn                  TEXT NOT NULL,
	publisher             TEXT,
	year                  TEXT,
	pages                 INTEGER NOT NULL,
	content_type          TEXT,
	description           TEXT,
	digital_price         TEXT,
	digital_quantity      TEXT,
	physical_price        TEXT,
	physical_quantity     TEXT,
	genres                TEXT,
	allow_phone_access    BOOLEAN NOT NULL DEFAULT 0,
	allow_physical_access BOOLEAN NOT NULL DEFAULT 0,
	created_at            TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// newTestRepo opens a private in-memory sqlite database with the book schema.
func newTestRepo(t *testing.T) (*Repo, *sql.DB) {
	t.Helper()
	conn, err := relational.Open(relational.Config{Driver: relational.DriverSQLite, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := conn.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return New(conn, Question), conn
}

func mustExec(t *testing.T, conn *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := conn.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
