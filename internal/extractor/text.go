package extractor

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docsearch/internal/document"
)

// TextExtractor handles plain text files. The whole file becomes a single
// page of blank-line-separated paragraphs.
type TextExtractor struct{}

func (p *TextExtractor) Extract(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc := &document.Document{
		Title: strings.TrimSuffix(filename, ".txt"),
	}
	if len(paragraphs) > 0 {
		doc.Pages = []document.Page{{
			Number: 1,
			Text:   strings.Join(paragraphs, "\n\n"),
		}}
	}
	return doc, nil
}
