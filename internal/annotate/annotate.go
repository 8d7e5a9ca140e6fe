// Package annotate turns raw search-service hits into citable chunk
// records: content, provenance metadata, and the originating page number
// recovered from in-text page markers.
package annotate

import (
	"regexp"
	"strconv"
)

// RetrievedChunk is the retrieval-time unit handed to the answering
// layer. Unresolved optional fields stay absent, never empty-string
// placeholders. Records are built fresh per search call and never cached.
type RetrievedChunk struct {
	Content    string `json:"content"`
	Title      string `json:"title,omitempty"`
	URI        string `json:"uri,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Page       *int   `json:"page,omitempty"`
}

// DocumentMeta carries the metadata a search backend returns alongside a
// chunk: the structured fields set at import time and the fields the
// backend derives on its own.
type DocumentMeta struct {
	ID      string
	Struct  map[string]any
	Derived map[string]any
}

// Page markers in priority order: a heading-style marker wins over a bare
// one. A chunk spanning a page boundary is attributed to its first marker
// only; later markers are ignored.
var pagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)##\s*Page\s+(\d+)`),
	regexp.MustCompile(`(?i)Page\s+(\d+)`),
}

// PageFromContent scans content for the first page marker and returns the
// matched page number, or nil when no marker is found or the match does
// not parse as an integer.
func PageFromContent(content string) *int {
	if content == "" {
		return nil
	}
	for _, pat := range pagePatterns {
		m := pat.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}

// Chunk assembles a uniform chunk record from raw backend content and
// document metadata. It never errors: entirely absent metadata still
// produces a valid record with all optional fields unset.
func Chunk(content string, meta DocumentMeta) RetrievedChunk {
	return RetrievedChunk{
		Content:    content,
		Title:      firstString(meta.Struct["title"], meta.Derived["title"]),
		URI:        firstString(meta.Struct["uri"], meta.Struct["link"], meta.Derived["link"]),
		DocumentID: meta.ID,
		Page:       PageFromContent(content),
	}
}

// firstString returns the first value that is a non-empty string.
func firstString(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
