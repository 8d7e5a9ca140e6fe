// Package pagehtml assembles extracted pages into well-formed HTML for
// downstream search ingestion. Output is deterministic: identical input
// produces identical bytes.
package pagehtml

import (
	"fmt"
	"html"
	"strings"

	"github.com/dgallion1/docsearch/internal/document"
)

// Render converts pages to HTML. With split false it returns a single
// combined document; with split true it returns one self-contained
// document per page, in page order.
func Render(pages []document.Page, title string, split bool) []string {
	if split {
		return Split(pages, title)
	}
	return []string{Combined(pages, title)}
}

// Combined renders all pages into one document. Each page becomes a
// labeled section carrying its page number as an addressable attribute,
// separated by horizontal rules.
func Combined(pages []document.Page, title string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + html.EscapeString(title) + "</title></head><body>\n")
	b.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")

	for _, page := range pages {
		fmt.Fprintf(&b, "<div class=\"page\" data-page=\"%d\">\n", page.Number)
		fmt.Fprintf(&b, "<h2>Page %d</h2>\n", page.Number)

		if page.Text != "" {
			b.WriteString("<div class=\"text-content\">\n")
			b.WriteString("<pre style=\"white-space: pre-wrap; font-family: Arial, sans-serif;\">" + html.EscapeString(page.Text) + "</pre>\n")
			b.WriteString("</div>\n")
		}

		writeTables(&b, page.Tables, true)

		b.WriteString("</div>\n")
		b.WriteString("<hr style=\"margin: 20px 0;\">\n")
	}

	b.WriteString("</body></html>")
	return b.String()
}

// Split renders each page as an independent document carrying the overall
// title plus its own page heading.
func Split(pages []document.Page, title string) []string {
	docs := make([]string, 0, len(pages))
	for _, page := range pages {
		var b strings.Builder
		fmt.Fprintf(&b, "<html><head><title>%s - Page %d</title></head><body>\n", html.EscapeString(title), page.Number)
		b.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")
		fmt.Fprintf(&b, "<h2>Page %d</h2>\n", page.Number)

		if page.Text != "" {
			b.WriteString("<div class=\"text-content\">\n")
			b.WriteString("<pre style=\"white-space: pre-wrap; font-family: Arial, sans-serif;\">" + html.EscapeString(page.Text) + "</pre>\n")
			b.WriteString("</div>\n")
		}

		writeTables(&b, page.Tables, false)

		b.WriteString("</body></html>")
		docs = append(docs, b.String())
	}
	return docs
}

// writeTables emits the tables block for a page. Empty tables are skipped
// silently; if every table is empty the block is omitted entirely.
func writeTables(b *strings.Builder, tables []document.Table, numbered bool) {
	rendered := make([]string, 0, len(tables))
	for _, t := range tables {
		if h := TableHTML(t); h != "" {
			rendered = append(rendered, h)
		}
	}
	if len(rendered) == 0 {
		return
	}

	b.WriteString("<div class=\"tables\">\n")
	for i, h := range rendered {
		if numbered {
			fmt.Fprintf(b, "<div class=\"table\" data-table=\"%d\">\n", i+1)
			b.WriteString(h + "\n")
			b.WriteString("</div>\n")
		} else {
			b.WriteString(h + "\n")
		}
	}
	b.WriteString("</div>\n")
}

// TableHTML renders one table. The first row becomes header cells, the
// rest data cells. A table with no rows or an empty first row yields "".
func TableHTML(t document.Table) string {
	if t.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("<table border=\"1\" cellpadding=\"5\" cellspacing=\"0\" style=\"border-collapse: collapse; margin: 10px 0;\">\n")
	for i, row := range t.Rows {
		b.WriteString("  <tr>\n")
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			fmt.Fprintf(&b, "    <%s>%s</%s>\n", tag, html.EscapeString(cell), tag)
		}
		b.WriteString("  </tr>\n")
	}
	b.WriteString("</table>")
	return b.String()
}
