package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/booksrag/internal/db"
	dombook "github.com/kailas-cloud/booksrag/internal/domain/book"
	domquery "github.com/kailas-cloud/booksrag/internal/domain/query"
	bookuc "github.com/kailas-cloud/booksrag/internal/usecase/book"
	collectionuc "github.com/kailas-cloud/booksrag/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/booksrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/booksrag/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/booksrag/internal/usecase/query"
	"github.com/kailas-cloud/booksrag/internal/worker"
)

// --- Mocks ---

type mockRetriever struct {
	params domquery.ParameterSet
	calls  []domquery.Call
	err    error
}

func (m *mockRetriever) Params() domquery.ParameterSet { return m.params }

func (m *mockRetriever) Query(_ context.Context, call domquery.Call) (json.RawMessage, error) {
	m.calls = append(m.calls, call)
	if m.err != nil {
		return nil, m.err
	}
	return json.RawMessage(`{"answer":"Dale Carnegie","sources":[]}`), nil
}

type mockIngester struct {
	err   error
	calls int
}

func (m *mockIngester) Ingest(_ context.Context, _ string) error {
	m.calls++
	return m.err
}

type mockStores struct {
	countsErr error
	pointsErr error
	vecCalls  int
}

func (m *mockStores) Ping(_ context.Context) error { return nil }

func (m *mockStores) Counts(_ context.Context) (dombook.Counts, error) {
	return dombook.Counts{Books: 2, Pages: 40}, m.countsErr
}

func (m *mockStores) CountPoints(_ context.Context, _ string) (int, error) {
	m.vecCalls++
	return 812, m.pointsErr
}

type mockBookRepo struct {
	uploads []dombook.StoredUpload
}

func (m *mockBookRepo) ListSummaries(_ context.Context) ([]dombook.Summary, error) {
	return []dombook.Summary{{BookID: "1", Title: "Sapiens", MinPage: 1, MaxPage: 443, TotalPages: 443}}, nil
}

func (m *mockBookRepo) CreateUpload(_ context.Context, u dombook.Upload) (dombook.StoredUpload, error) {
	s := dombook.StoredUpload{ID: int64(len(m.uploads) + 1), CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Upload: u}
	m.uploads = append(m.uploads, s)
	return s, nil
}

func (m *mockBookRepo) ListUploads(_ context.Context) ([]dombook.StoredUpload, error) {
	return m.uploads, nil
}

func (m *mockBookRepo) GetUpload(_ context.Context, id int64) (dombook.StoredUpload, error) {
	for _, u := range m.uploads {
		if u.ID == id {
			return u, nil
		}
	}
	return dombook.StoredUpload{}, db.ErrNotFound
}

type fixture struct {
	handler   http.Handler
	retriever *mockRetriever
	ingester  *mockIngester
	stores    *mockStores
	books     *mockBookRepo
	scratch   string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	scratch := t.TempDir()
	pool := worker.NewPool(worker.Config{Size: 1, ScratchRoot: scratch}, nil)
	if err := pool.Start(); err != nil {
		t.Fatalf("start pool: %v", err)
	}
	t.Cleanup(pool.Stop)

	f := &fixture{
		retriever: &mockRetriever{params: domquery.DefaultParameterSet()},
		ingester:  &mockIngester{},
		stores:    &mockStores{},
		books:     &mockBookRepo{},
		scratch:   scratch,
	}
	resolver := collectionuc.NewResolver("", nil, "")
	srv := NewServer(Services{
		Query:      queryuc.New(f.retriever),
		Ingest:     ingestuc.New(f.ingester, pool, nil, nil),
		Health:     healthuc.New(f.stores, f.stores, f.stores, resolver, nil),
		Books:      bookuc.New(f.books),
		Collection: resolver,
	}, opts, nil)
	f.handler = NewRouter(srv, nil)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return e
}

func multipartBody(t *testing.T, field, name, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

// --- Tests ---

func TestQuery_Passthrough(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(t, http.MethodPost, "/query", strings.NewReader(`{"question":"who?","k":5,"foo":"bar","book_id":null}`), "application/json")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != `{"answer":"Dale Carnegie","sources":[]}` {
		t.Errorf("body = %s", rr.Body.String())
	}
	call := f.retriever.calls[0]
	if len(call) != 2 || call["question"] != "who?" {
		t.Errorf("call = %v", call)
	}
}

func TestQuery_MissingQuestion(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(t, http.MethodPost, "/query", strings.NewReader(`{"k":5}`), "application/json")

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeValidationFailed || !strings.Contains(e.Message, "missing question") {
		t.Errorf("error = %+v", e)
	}
	if len(f.retriever.calls) != 0 {
		t.Error("collaborator must not be called")
	}
}

func TestQuery_BadBody(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(t, http.MethodPost, "/query", strings.NewReader(`{"question":`), "application/json")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestQuery_CollaboratorError(t *testing.T) {
	tests := []struct {
		name string
		hide bool
		want string
	}{
		{"verbatim", false, "vector index unavailable"},
		{"hidden", true, "retrieval failed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{HideCollaboratorErrors: tc.hide})
			f.retriever.err = errors.New("vector index unavailable")

			rr := f.do(t, http.MethodPost, "/query", strings.NewReader(`{"question":"q"}`), "application/json")
			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rr.Code)
			}
			e := decodeError(t, rr)
			if e.Code != CodeCollaboratorError || e.Message != tc.want {
				t.Errorf("error = %+v", e)
			}
		})
	}
}

func TestIngestPDF_Success(t *testing.T) {
	f := newFixture(t, Options{})
	body, ct := multipartBody(t, "file", "Book.PDF", "%PDF-1.7")

	rr := f.do(t, http.MethodPost, "/ingest/pdf", body, ct)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp ingestResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.FileName != "Book.PDF" || !resp.Ingested || resp.Bytes != 8 || resp.JobID == "" {
		t.Errorf("resp = %+v", resp)
	}
	if f.ingester.calls != 1 {
		t.Errorf("ingest calls = %d", f.ingester.calls)
	}
}

func TestIngestPDF_RejectsExtension(t *testing.T) {
	f := newFixture(t, Options{})
	body, ct := multipartBody(t, "file", "notes.txt", "hello")

	rr := f.do(t, http.MethodPost, "/ingest/pdf", body, ct)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Message != "Only .pdf is accepted" || e.Code != CodeUnsupportedMedia {
		t.Errorf("error = %+v", e)
	}
	if f.ingester.calls != 0 {
		t.Error("collaborator must not be called")
	}
	err := filepath.WalkDir(f.scratch, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			t.Errorf("rejected upload left %s behind", path)
		}
		return err
	})
	if err != nil {
		t.Fatalf("walk scratch: %v", err)
	}
}

func TestIngestPDF_CollaboratorError(t *testing.T) {
	f := newFixture(t, Options{})
	f.ingester.err = errors.New("no text layer")
	body, ct := multipartBody(t, "file", "scan.pdf", "%PDF")

	rr := f.do(t, http.MethodPost, "/ingest/pdf", body, ct)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Message != "no text layer" {
		t.Errorf("error = %+v", e)
	}
}

func TestIngestPDF_MissingField(t *testing.T) {
	f := newFixture(t, Options{})
	body, ct := multipartBody(t, "document", "a.pdf", "%PDF")

	rr := f.do(t, http.MethodPost, "/ingest/pdf", body, ct)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestIngestPDF_NotMultipart(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(t, http.MethodPost, "/ingest/pdf", strings.NewReader("{}"), "application/json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestIngestPDF_TooLarge(t *testing.T) {
	f := newFixture(t, Options{MaxUploadBytes: 1024})
	body, ct := multipartBody(t, "file", "a.pdf", strings.Repeat("x", 4096))

	rr := f.do(t, http.MethodPost, "/ingest/pdf", body, ct)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestDebugState(t *testing.T) {
	tests := []struct {
		name      string
		countsErr error
		pointsErr error
		want      string
		vecCalls  int
	}{
		{"ok", nil, nil, `{"ok":true,"db":{"books":2,"pages":40},"vector":{"collection":"books_rag","points":812}}`, 1},
		{"db down", errors.New("connection refused"), nil, `{"ok":false,"db_error":"connection refused"}`, 0},
		{"vector down", nil, errors.New("timed out"), `{"ok":false,"vector_error":"timed out"}`, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.stores.countsErr = tc.countsErr
			f.stores.pointsErr = tc.pointsErr

			rr := f.do(t, http.MethodGet, "/debug/state", http.NoBody, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tc.want {
				t.Errorf("body = %s, want %s", got, tc.want)
			}
			if f.stores.vecCalls != tc.vecCalls {
				t.Errorf("vector calls = %d, want %d", f.stores.vecCalls, tc.vecCalls)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(t, http.MethodGet, "/health", http.NoBody, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestBooksUpload_Flow(t *testing.T) {
	f := newFixture(t, Options{})

	rr := f.do(t, http.MethodPost, "/booksUpload",
		strings.NewReader(`{"title":"Sapiens","isbn":"9780062316097","pages":443,"genres":["History","Science"]}`),
		"application/json")
	if rr.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var created createUploadResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if created.BookID != 1 || created.Message != "Book uploaded successfully" {
		t.Errorf("created = %+v", created)
	}

	rr = f.do(t, http.MethodGet, "/booksUpload/1", http.NoBody, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var got struct {
		Item uploadRow `json:"item"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	if got.Item.Genres != "History,Science" || got.Item.Title != "Sapiens" {
		t.Errorf("item = %+v", got.Item)
	}

	rr = f.do(t, http.MethodGet, "/booksUpload", http.NoBody, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"items":[{`) {
		t.Errorf("list = %d %s", rr.Code, rr.Body.String())
	}
}

func TestBooksUpload_Errors(t *testing.T) {
	f := newFixture(t, Options{})

	rr := f.do(t, http.MethodPost, "/booksUpload", strings.NewReader(`{"title":"X","isbn":"123","pages":1}`), "application/json")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("short isbn status = %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/booksUpload/99", http.NoBody, "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Message != "Book not found" {
		t.Errorf("missing status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/booksUpload/abc", http.NoBody, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad id status = %d", rr.Code)
	}
}

func TestListBooks(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(t, http.MethodGet, "/books", http.NoBody, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"total_pages":443`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestDebugEndpoints(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	f := newFixture(t, Options{
		EnvKeys: []string{"PGHOST", "BOOKSRAG_SURELY_UNSET"},
		Debug:   DebugInfo{PGUser: "postgres", PGDatabase: "books", PGPort: 55432, QdrantHost: "localhost", QdrantPort: 6333, SeedCollection: "books_rag_seed"},
	})

	rr := f.do(t, http.MethodGet, "/debug/config", http.NoBody, "")
	if !strings.Contains(rr.Body.String(), `"qdrant_collection":"books_rag"`) || !strings.Contains(rr.Body.String(), `"pgport":55432`) {
		t.Errorf("config = %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"qdrant_seed_collection":"books_rag_seed"`) {
		t.Errorf("config missing seed collection: %s", rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/debug/query-env", http.NoBody, "")
	if got := strings.TrimSpace(rr.Body.String()); got != `{"BOOKSRAG_SURELY_UNSET":null,"PGHOST":"db.internal"}` {
		t.Errorf("query-env = %s", got)
	}

	rr = f.do(t, http.MethodGet, "/debug/qdrant-count?collection=other", http.NoBody, "")
	if got := strings.TrimSpace(rr.Body.String()); got != `{"collection":"other","points":812}` {
		t.Errorf("count = %s", got)
	}
	rr = f.do(t, http.MethodGet, "/debug/qdrant-count", http.NoBody, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing collection status = %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/debug/query-signature", http.NoBody, "")
	if !strings.Contains(rr.Body.String(), `"signature":"(question: string, book_id: string, k: int, target_chars: int, dry_run: bool)"`) {
		t.Errorf("signature = %s", rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/debug/query-dry-kwargs", strings.NewReader(`{"question":"q","foo":1}`), "application/json")
	var p domquery.Preview
	_ = json.Unmarshal(rr.Body.Bytes(), &p)
	if len(p.WillPass) != 1 || len(p.Received) != 2 || len(p.Supported) != 5 {
		t.Errorf("preview = %+v", p)
	}
	if len(f.retriever.calls) != 0 {
		t.Error("dry run must not call the collaborator")
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(t, http.MethodGet, "/nope", http.NoBody, "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Code != CodeNotFound {
		t.Errorf("status = %d body = %s", rr.Code, rr.Body.String())
	}
}
