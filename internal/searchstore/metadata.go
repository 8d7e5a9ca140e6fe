package searchstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is one document record in the import metadata file: a
// content-addressed id, the MIME type and storage URI of the document
// body, and a small structured-data block carried through to search
// results.
type Metadata struct {
	ID         string     `json:"id"`
	Content    Content    `json:"content"`
	StructData StructData `json:"structData"`
}

// Content points the datastore at the document body.
type Content struct {
	MimeType string `json:"mimeType"`
	URI      string `json:"uri"`
}

// StructData is the structured metadata attached to a document. Title and
// source file feed citation; the content hash backs ingest dedup; page is
// set only for per-page and per-chunk documents.
type StructData struct {
	Title       string `json:"title"`
	SourceFile  string `json:"source_file"`
	ContentHash string `json:"content_hash,omitempty"`
	Page        int    `json:"page,omitempty"`
}

// EncodeJSONL renders metadata records as one JSON object per line, the
// layout the import endpoint expects.
func EncodeJSONL(records []Metadata) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode metadata %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
