package extractor

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsearch/internal/document"
)

// CSVExtractor handles CSV files. The whole file becomes one page holding
// a single table whose first record is the header row.
type CSVExtractor struct{}

func (p *CSVExtractor) Extract(r io.Reader, filename string) (*document.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &document.Document{
		Title: strings.TrimSuffix(filename, ".csv"),
	}

	table := document.Table{Rows: records}
	if table.Empty() {
		return doc, nil
	}

	doc.Pages = []document.Page{{
		Number: 1,
		Tables: []document.Table{table},
	}}
	return doc, nil
}
