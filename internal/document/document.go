package document

// Document is the extraction result for a single source file.
type Document struct {
	Title string // Document title (from metadata or filename)
	Pages []Page // Ordered pages, 1-based, source order
}

// Page is one physical page (or sequential section, for unpaged formats).
type Page struct {
	Number int     // 1-based page number, unique within a document
	Text   string  // Normalized plain text, may be empty
	Tables []Table // Tables in extraction order, may be empty
}

// Table is a rectangular grid of cell text. The first row is the header
// row when rendered. Missing cells are empty strings.
type Table struct {
	Rows [][]string
}

// Empty reports whether a table would produce no output: no rows, or an
// empty first row.
func (t Table) Empty() bool {
	return len(t.Rows) == 0 || len(t.Rows[0]) == 0
}

// Chunk is a sized text segment produced by local chunking, ready for
// upload as its own indexable unit.
type Chunk struct {
	Text  string // Chunk text, prefixed with its page heading
	Index int    // Sequence number within document
	Page  int    // Source page number (0 if unknown)
}

// HasText reports whether any page carries text. Zero pages with text is
// a caller-level warning condition, not an error.
func (d *Document) HasText() bool {
	for _, p := range d.Pages {
		if p.Text != "" {
			return true
		}
	}
	return false
}
