package searchstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadObject_ReturnsStorageURI(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = readAll(r)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "docs-bucket", "ds-1")
	uri, err := c.UploadObject(context.Background(), "html/abc.html", "text/html", []byte("<html></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uri != "ss://docs-bucket/html/abc.html" {
		t.Errorf("unexpected uri: %q", uri)
	}
	if gotPath != "/objects/docs-bucket/html/abc.html" {
		t.Errorf("unexpected path: %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("missing bearer auth: %q", gotAuth)
	}
	if gotType != "text/html" {
		t.Errorf("unexpected content type: %q", gotType)
	}
	if !bytes.Equal(gotBody, []byte("<html></html>")) {
		t.Errorf("body not forwarded: %q", gotBody)
	}
}

func TestSearch_DecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/datastores/ds-1/search" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		var req SearchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "what is the refund policy" || req.PageSize != 10 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{
			{
				Document: DocumentRecord{
					ID:         "doc-1",
					StructData: map[string]any{"title": "Policy"},
				},
				Chunk: ChunkContent{Content: "## Page 4\nRefunds are issued within 30 days."},
			},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "b", "ds-1")
	resp, err := c.Search(context.Background(), "what is the refund policy", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Document.ID != "doc-1" {
		t.Errorf("unexpected document id: %q", resp.Results[0].Document.ID)
	}
	if !strings.Contains(resp.Results[0].Chunk.Content, "Refunds") {
		t.Errorf("unexpected chunk content: %q", resp.Results[0].Chunk.Content)
	}
}

func TestSearch_ErrorStatusSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "datastore not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "b", "missing")
	_, err := c.Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "datastore not found") {
		t.Errorf("error lacks detail: %v", err)
	}
}

func TestImportDocuments_RetryableOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "b", "ds")
	err := c.ImportDocuments(context.Background(), "ss://b/meta.jsonl")
	var retryErr *RetryableError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if retryErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status: %d", retryErr.StatusCode)
	}
}

func TestFindByHash_NoMatchReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("content_hash"); got != "abc123" {
			t.Errorf("unexpected hash filter: %q", got)
		}
		w.Write([]byte(`{"documents":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "b", "ds")
	doc, err := c.FindByHash(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil, got %+v", doc)
	}
}

func TestEncodeJSONL_OneObjectPerLine(t *testing.T) {
	records := []Metadata{
		{
			ID:         "a1",
			Content:    Content{MimeType: "text/html", URI: "ss://b/html/a1.html"},
			StructData: StructData{Title: "Doc A", SourceFile: "a.pdf", ContentHash: "h1"},
		},
		{
			ID:         "a2",
			Content:    Content{MimeType: "text/html", URI: "ss://b/html/a2.html"},
			StructData: StructData{Title: "Doc A", SourceFile: "a.pdf", Page: 2},
		},
	}
	out, err := EncodeJSONL(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first Metadata
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if first.Content.URI != "ss://b/html/a1.html" {
		t.Errorf("unexpected uri: %q", first.Content.URI)
	}
	if strings.Contains(lines[0], `"page"`) {
		t.Errorf("zero page serialized on combined record: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"page":2`) {
		t.Errorf("page missing on split record: %s", lines[1])
	}
}

func readAll(r *http.Request) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r.Body)
	return buf.Bytes(), err
}
