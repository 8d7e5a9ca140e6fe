package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/docsearch/internal/document"
)

func TestPages_SmallPageFitsOneChunk(t *testing.T) {
	doc := &document.Document{
		Title: "Small",
		Pages: []document.Page{
			{Number: 1, Text: strings.Repeat("word ", 200)},
		},
	}

	cfg := Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 50}
	chunks := Pages(doc, cfg)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "## Page 1\n\n") {
		t.Errorf("chunk missing page marker prefix: %q", chunks[0].Text[:40])
	}
	if chunks[0].Page != 1 {
		t.Errorf("expected page 1, got %d", chunks[0].Page)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
}

func TestPages_LargePageSplitsWithMarkerOnEachChunk(t *testing.T) {
	// Many paragraphs well past the target size.
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString(strings.Repeat("alpha beta gamma delta epsilon ", 20))
		sb.WriteString("\n\n")
	}
	doc := &document.Document{
		Pages: []document.Page{{Number: 3, Text: sb.String()}},
	}

	chunks := Pages(doc, Config{ChunkSize: 300, ChunkOverlap: 30, MinChunk: 20})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !strings.HasPrefix(c.Text, "## Page 3\n\n") {
			t.Errorf("chunk[%d] missing page marker", i)
		}
		if c.Index != i {
			t.Errorf("chunk[%d] has index %d", i, c.Index)
		}
	}
}

func TestPages_PreservesPageOrder(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{
			{Number: 1, Text: strings.Repeat("one ", 100)},
			{Number: 2, Text: strings.Repeat("two ", 100)},
			{Number: 3, Text: strings.Repeat("three ", 100)},
		},
	}

	chunks := Pages(doc, Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 20})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Page != i+1 {
			t.Errorf("chunk[%d]: expected page %d, got %d", i, i+1, c.Page)
		}
	}
}

func TestPages_EmptyPagesSkipped(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{
			{Number: 1},
			{Number: 2, Text: strings.Repeat("content ", 100)},
		},
	}
	chunks := Pages(doc, Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 20})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Page != 2 {
		t.Errorf("expected chunk from page 2, got page %d", chunks[0].Page)
	}
}

func TestPages_TableOnlyPageIsChunkable(t *testing.T) {
	rows := make([][]string, 0, 40)
	rows = append(rows, []string{"name", "value"})
	for i := 0; i < 39; i++ {
		rows = append(rows, []string{strings.Repeat("key ", 10), strings.Repeat("val ", 10)})
	}
	doc := &document.Document{
		Pages: []document.Page{
			{Number: 2, Tables: []document.Table{{Rows: rows}}},
		},
	}

	chunks := Pages(doc, Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 20})
	if len(chunks) == 0 {
		t.Fatal("table-only page produced no chunks")
	}
	if !strings.Contains(chunks[0].Text, "name | value") {
		t.Errorf("table rows not flattened into chunk text: %q", chunks[0].Text[:60])
	}
}

func TestPages_MinChunkFiltersTinyPages(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{{Number: 1, Text: "tiny"}},
	}
	chunks := Pages(doc, Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 100})
	if len(chunks) != 0 {
		t.Errorf("expected tiny page filtered out, got %d chunks", len(chunks))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty text: expected 0 tokens, got %d", got)
	}
	if got := EstimateTokens("one two three four"); got < 4 || got > 8 {
		t.Errorf("unexpected token estimate: %d", got)
	}
}
