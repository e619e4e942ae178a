package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/booksrag/internal/domain"
	"github.com/kailas-cloud/booksrag/internal/worker"
)

// --- Mocks ---

type mockIngester struct {
	fn    func(ctx context.Context, path string) error
	paths []string
}

func (m *mockIngester) Ingest(ctx context.Context, path string) error {
	m.paths = append(m.paths, path)
	if m.fn != nil {
		return m.fn(ctx, path)
	}
	return nil
}

type countingRunner struct {
	inner Runner
	calls int
}

func (r *countingRunner) Do(ctx context.Context, job worker.Job) error {
	r.calls++
	return r.inner.Do(ctx, job)
}

func startPool(t *testing.T) *worker.Pool {
	t.Helper()
	return startPoolAt(t, t.TempDir())
}

func startPoolAt(t *testing.T, root string) *worker.Pool {
	t.Helper()
	p := worker.NewPool(worker.Config{Size: 1, ScratchRoot: root}, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("start pool: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

// countFiles counts regular files anywhere under root.
func countFiles(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n, err
}

func stagedFiles(t *testing.T, root string) int {
	t.Helper()
	n, err := countFiles(root)
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return n
}

// --- Tests ---

func TestIngestUpload_Success(t *testing.T) {
	var seen []byte
	ing := &mockIngester{fn: func(ctx context.Context, path string) error {
		if _, ok := worker.EnvFromContext(ctx); !ok {
			t.Error("collaborator must run with a worker env")
		}
		var err error
		seen, err = os.ReadFile(path)
		return err
	}}
	svc := New(ing, startPool(t), nil, nil)

	res, err := svc.IngestUpload(context.Background(), "Book.PDF", strings.NewReader("%PDF-1.7 body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Ingested || res.FileName != "Book.PDF" || res.Bytes != 13 {
		t.Errorf("result = %+v", res)
	}
	if string(seen) != "%PDF-1.7 body" {
		t.Errorf("collaborator saw %q", seen)
	}
	if len(ing.paths) != 1 {
		t.Fatalf("expected 1 ingest call, got %d", len(ing.paths))
	}
	if ext := filepath.Ext(ing.paths[0]); ext != ".pdf" {
		t.Errorf("staged extension = %q", ext)
	}
	if _, err := os.Stat(ing.paths[0]); !os.IsNotExist(err) {
		t.Errorf("staged file must be removed, stat err = %v", err)
	}
}

func TestIngestUpload_ExactlyOneStagedFileWhileIngesting(t *testing.T) {
	root := t.TempDir()
	during := -1
	ing := &mockIngester{fn: func(context.Context, string) error {
		var err error
		during, err = countFiles(root)
		return err
	}}
	svc := New(ing, startPoolAt(t, root), nil, nil)

	if _, err := svc.IngestUpload(context.Background(), "book.pdf", strings.NewReader("%PDF")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if during != 1 {
		t.Errorf("staged files during ingestion = %d, want 1", during)
	}
	if after := stagedFiles(t, root); after != 0 {
		t.Errorf("staged files after ingestion = %d, want 0", after)
	}
}

func TestIngestUpload_CollaboratorFailureRemovesFile(t *testing.T) {
	ing := &mockIngester{fn: func(context.Context, string) error {
		return errors.New("no text layer found")
	}}
	svc := New(ing, startPool(t), nil, nil)

	_, err := svc.IngestUpload(context.Background(), "scan.pdf", strings.NewReader("x"))
	var ce *domain.CollaboratorError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if ce.Message != "no text layer found" || ce.Collaborator != domain.CollaboratorIngestion {
		t.Errorf("collaborator error = %+v", ce)
	}
	if _, statErr := os.Stat(ing.paths[0]); !os.IsNotExist(statErr) {
		t.Errorf("staged file must be removed after failure, stat err = %v", statErr)
	}
}

func TestIngestUpload_PanicRemovesFile(t *testing.T) {
	ing := &mockIngester{fn: func(context.Context, string) error { panic("boom") }}
	svc := New(ing, startPool(t), nil, nil)

	if _, err := svc.IngestUpload(context.Background(), "a.pdf", strings.NewReader("x")); err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(ing.paths[0]); !os.IsNotExist(statErr) {
		t.Errorf("staged file must be removed after panic, stat err = %v", statErr)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestIngestUpload_WriteErrorSkipsCollaborator(t *testing.T) {
	ing := &mockIngester{}
	pool := startPool(t)
	svc := New(ing, pool, nil, nil)

	_, err := svc.IngestUpload(context.Background(), "a.pdf", failingReader{})
	if err == nil || !strings.Contains(err.Error(), "client went away") {
		t.Fatalf("expected write error, got %v", err)
	}
	if errors.Is(err, domain.ErrCollaborator) {
		t.Error("staging failure is not a collaborator error")
	}
	if len(ing.paths) != 0 {
		t.Error("collaborator must not be called when staging fails")
	}
}

func TestIngestUpload_RejectsExtension(t *testing.T) {
	tests := []string{"notes.txt", "book.pdf.exe", "README", ""}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			ing := &mockIngester{}
			runner := &countingRunner{inner: startPoolAt(t, root)}
			svc := New(ing, runner, nil, nil)

			_, err := svc.IngestUpload(context.Background(), name, strings.NewReader("x"))
			if !errors.Is(err, domain.ErrUnsupportedMedia) {
				t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
			}
			if runner.calls != 0 || len(ing.paths) != 0 {
				t.Error("rejected upload must not reach the pool")
			}
			if n := stagedFiles(t, root); n != 0 {
				t.Errorf("rejected upload left %d staged files", n)
			}
		})
	}
}

func TestIngestUpload_DetachedFromCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ing := &mockIngester{fn: func(ctx context.Context, _ string) error {
		cancel()
		return ctx.Err()
	}}
	svc := New(ing, startPool(t), nil, nil)

	if _, err := svc.IngestUpload(ctx, "a.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("client cancellation must not reach the job: %v", err)
	}
}

func TestNew_NormalizesExtensions(t *testing.T) {
	svc := New(&mockIngester{}, nil, []string{"PDF", " .Epub ", ""}, nil)
	got := svc.Extensions()
	if len(got) != 2 || got[0] != ".pdf" || got[1] != ".epub" {
		t.Errorf("extensions = %v", got)
	}
	if _, ok := svc.accept("x.EPUB"); !ok {
		t.Error("expected .EPUB to be accepted")
	}
}
