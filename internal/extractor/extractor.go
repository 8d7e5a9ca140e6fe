package extractor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsearch/internal/document"
)

// Extractor converts raw file bytes into an ordered sequence of pages.
type Extractor interface {
	Extract(r io.Reader, filename string) (*document.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".docx": true,
	".csv":  true,
	".txt":  true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".txt":
		return &TextExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// sectionPages accumulates text and tables into sequentially numbered
// pages for formats without physical pages. A new page opens at each
// top-level heading; the heading text stays with its page.
type sectionPages struct {
	pages  []document.Page
	text   strings.Builder
	tables []document.Table
}

// startSection flushes the current page (if it has content) and begins a
// new one headed by title.
func (s *sectionPages) startSection(title string) {
	s.flush()
	if title != "" {
		s.text.WriteString(title)
	}
}

// addText appends a paragraph to the current page.
func (s *sectionPages) addText(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if s.text.Len() > 0 {
		s.text.WriteString("\n\n")
	}
	s.text.WriteString(t)
}

// addTable appends a table to the current page.
func (s *sectionPages) addTable(t document.Table) {
	s.tables = append(s.tables, t)
}

func (s *sectionPages) flush() {
	text := strings.TrimSpace(s.text.String())
	if text == "" && len(s.tables) == 0 {
		return
	}
	s.pages = append(s.pages, document.Page{
		Number: len(s.pages) + 1,
		Text:   text,
		Tables: s.tables,
	})
	s.text.Reset()
	s.tables = nil
}

// result closes the final page and returns the collected sequence.
func (s *sectionPages) result() []document.Page {
	s.flush()
	return s.pages
}
