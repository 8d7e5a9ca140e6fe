package extractor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docsearch/internal/document"
	"github.com/dgallion1/docsearch/internal/normalize"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF files. Text comes from the Go library, with an
// optional pdftotext fallback; tables are detected from positioned text
// rows by gap clustering.
type PDFExtractor struct {
	FallbackPdftotext bool
}

// Thresholds in PDF points for grouping positioned text runs. A small gap
// separates words, a large one separates table cells.
const (
	wordGap = 2.0
	cellGap = 15.0
)

func (p *PDFExtractor) Extract(r io.Reader, filename string) (*document.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docsearch-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc := &document.Document{
		Title: strings.TrimSuffix(filename, ".pdf"),
	}

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotextPages(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf: %w", err)
	}

	doc.Pages = pages
	return doc, nil
}

func extractPDFPages(path string) ([]document.Page, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]document.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := document.Page{Number: i}

		src := reader.Page(i)
		if src.V.IsNull() {
			pages = append(pages, page)
			continue
		}

		if text, err := src.GetPlainText(nil); err == nil {
			page.Text = normalize.WordBreaks(strings.TrimSpace(text))
		}
		page.Tables = extractPageTables(src)

		pages = append(pages, page)
	}
	return pages, nil
}

// extractPageTables detects tables from positioned text rows: runs of two
// or more consecutive rows whose text clusters into the same number of
// gap-separated cells. Best-effort, not a layout engine.
func extractPageTables(src pdflib.Page) []document.Table {
	rows, err := src.GetTextByRow()
	if err != nil {
		return nil
	}

	cellRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		cellRows = append(cellRows, clusterCells(row.Content))
	}

	var tables []document.Table
	var current [][]string
	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, document.Table{Rows: current})
		}
		current = nil
	}

	for _, cells := range cellRows {
		if len(cells) >= 2 && (len(current) == 0 || len(cells) == len(current[0])) {
			current = append(current, cells)
			continue
		}
		flush()
		if len(cells) >= 2 {
			current = append(current, cells)
		}
	}
	flush()

	return tables
}

// clusterCells groups a row's text runs into cells by horizontal gaps.
func clusterCells(runs pdflib.TextHorizontal) []string {
	var cells []string
	var cell strings.Builder
	var prevEnd float64
	started := false

	for _, run := range runs {
		if started {
			gap := run.X - prevEnd
			if gap > cellGap {
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			} else if gap > wordGap {
				cell.WriteString(" ")
			}
		}
		cell.WriteString(run.S)
		prevEnd = run.X + run.W
		started = true
	}
	if cell.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}

	// Drop rows that clustered into empty cells only.
	for _, c := range cells {
		if c != "" {
			return cells
		}
	}
	return nil
}

// extractPdftotextPages shells out to pdftotext, which emits form feeds
// between pages. No positional data, so no table detection on this path.
func extractPdftotextPages(path string) ([]document.Page, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	parts := strings.Split(string(out), "\f")
	pages := make([]document.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, document.Page{
			Number: i + 1,
			Text:   normalize.WordBreaks(strings.TrimSpace(part)),
		})
	}
	// pdftotext emits a trailing form feed; drop the empty final page.
	if n := len(pages); n > 0 && pages[n-1].Text == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}
