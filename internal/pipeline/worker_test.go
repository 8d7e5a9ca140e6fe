package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docsearch/internal/chunker"
	"github.com/dgallion1/docsearch/internal/searchstore"
)

// fakeStore records uploads and imports so worker behavior can be asserted.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	imports   []string
	documents []searchstore.DocumentRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.objects[strings.TrimPrefix(r.URL.Path, "/objects/")] = body
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/datastores/main/documents:import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			MetadataURI string `json:"metadata_uri"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.imports = append(f.imports, req.MetadataURI)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/datastores/main/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		f.mu.Lock()
		docs := f.documents
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"documents": docs})
	})
	return mux
}

func (f *fakeStore) object(name string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[name]
}

func (f *fakeStore) importCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.imports)
}

func testWorker(t *testing.T, fake *fakeStore) *Worker {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	client := searchstore.NewClient(srv.URL, "test-key", "docs", "main")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(client, log, chunker.DefaultConfig(), 2, "site", false)
}

func startedJob(filename, title string, mode IndexMode, data string) *Job {
	job := NewJob(filename, title, mode)
	job.SetFileData([]byte(data))
	return job
}

func TestWorker_ProcessTextDocumentMode(t *testing.T) {
	fake := newFakeStore()
	w := testWorker(t, fake)

	job := startedJob("notes.txt", "Meeting Notes", ModeDocument,
		"First paragraph of notes.\n\nSecond paragraph of notes.")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors: %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.DocID == "" || snap.DocID != snap.ContentHash {
		t.Errorf("expected content-hash doc ID, got %q", snap.DocID)
	}
	if snap.Progress.TotalObjects != 1 || snap.Progress.ObjectsUploaded != 1 {
		t.Errorf("expected 1/1 objects, got %d/%d", snap.Progress.ObjectsUploaded, snap.Progress.TotalObjects)
	}

	html := fake.object("docs/site/" + snap.DocID + "/document.html")
	if html == nil {
		t.Fatal("expected combined HTML object to be uploaded")
	}
	if !strings.Contains(string(html), "<h1>Meeting Notes</h1>") {
		t.Errorf("expected title heading in HTML, got:\n%s", html)
	}

	manifest := fake.object("docs/site/" + snap.DocID + "/metadata.jsonl")
	if manifest == nil {
		t.Fatal("expected metadata manifest to be uploaded")
	}
	var meta searchstore.Metadata
	if err := json.Unmarshal(manifest, &meta); err != nil {
		t.Fatalf("manifest is not a JSON line: %v", err)
	}
	if meta.ID != snap.DocID {
		t.Errorf("expected metadata ID %q, got %q", snap.DocID, meta.ID)
	}
	if meta.StructData.ContentHash != snap.ContentHash {
		t.Errorf("expected content hash in metadata, got %q", meta.StructData.ContentHash)
	}
	if !strings.HasPrefix(meta.Content.URI, "ss://docs/site/") {
		t.Errorf("expected store URI, got %q", meta.Content.URI)
	}

	if fake.importCount() != 1 {
		t.Errorf("expected 1 import call, got %d", fake.importCount())
	}
}

func TestWorker_ProcessChunksMode(t *testing.T) {
	fake := newFakeStore()
	w := testWorker(t, fake)

	job := startedJob("guide.txt", "User Guide", ModeChunks,
		strings.Repeat("A sentence that fills out the page with useful words. ", 40))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors: %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalObjects < 1 {
		t.Fatal("expected at least one chunk object")
	}

	chunk := fake.object("docs/site/" + snap.DocID + "/chunk-0000.txt")
	if chunk == nil {
		t.Fatal("expected first chunk object to be uploaded")
	}
	if !strings.HasPrefix(string(chunk), "## Page 1\n\n") {
		t.Errorf("expected page marker prefix on chunk, got:\n%.60s", chunk)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	fake := newFakeStore()
	fake.documents = []searchstore.DocumentRecord{{ID: "existing-doc"}}
	w := testWorker(t, fake)

	job := startedJob("notes.txt", "", ModeDocument, "Same content as before.")
	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %q", job.Snapshot().Status)
	}
	if fake.importCount() != 0 {
		t.Error("expected no import for a duplicate")
	}
}

func TestWorker_ForceOverridesDedup(t *testing.T) {
	fake := newFakeStore()
	fake.documents = []searchstore.DocumentRecord{{ID: "existing-doc"}}
	w := testWorker(t, fake)

	job := startedJob("notes.txt", "", ModeDocument, "Same content as before.")
	job.Force = true
	w.Process(context.Background(), job)

	if got := job.Snapshot().Status; got != StatusCompleted {
		t.Fatalf("expected completed with force, got %q", got)
	}
}

func TestWorker_UnsupportedFormatFails(t *testing.T) {
	fake := newFakeStore()
	w := testWorker(t, fake)

	job := startedJob("image.png", "", ModeDocument, "binary")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected an error to be recorded")
	}
}

func TestWorker_PagesModeUploadsPerPage(t *testing.T) {
	fake := newFakeStore()
	w := testWorker(t, fake)

	job := startedJob("spec.md", "Design", ModePages,
		"# Design\n\nIntro text.\n\n## Storage\n\nStorage text.\n\n## Transport\n\nTransport text.")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors: %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalObjects < 2 {
		t.Fatalf("expected one object per section page, got %d", snap.Progress.TotalObjects)
	}
	page := fake.object("docs/site/" + snap.DocID + "/page-0001.html")
	if page == nil {
		t.Fatal("expected page 1 object to be uploaded")
	}
	if !strings.Contains(string(page), "<h2>Page 1</h2>") {
		t.Errorf("expected page heading, got:\n%s", page)
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	prevMax := time.Duration(0)
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		if d < time.Second {
			t.Errorf("attempt %d: backoff %v below base", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v above cap+jitter", attempt, d)
		}
		if d > prevMax {
			prevMax = d
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&searchstore.RetryableError{StatusCode: 503}) {
		t.Error("expected store 503 to be retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Error("expected context.Canceled not to be retryable")
	}
	if IsRetryable(nil) {
		t.Error("expected nil not to be retryable")
	}
}
