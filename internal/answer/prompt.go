package answer

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docsearch/internal/annotate"
)

// Instruction is the system prompt for the answering model. The retrieved
// chunks are the model's only view of the documents, so the rules force
// grounding and page citation.
func Instruction() string {
	return `You are a document assistant. You answer questions based only on the retrieved document excerpts provided with each question.

REQUIREMENTS FOR EVERY RESPONSE:
1. Base your answer exclusively on the provided excerpts. Never make up information.
2. Provide evidence by citing specific content from the excerpts.
3. Mention page numbers when available, like: "According to page X..." or "On page Y, it states that...".
4. If multiple pages are referenced, mention all relevant page numbers.
5. If the excerpts do not contain the answer, say so explicitly.
6. When page numbers are not available, reference the document title instead.

Use clear, natural language. Answers may require deduction across multiple excerpts.`
}

// BuildPrompt renders the question and its retrieved chunks into a single
// user message. Each chunk carries its provenance so the model can cite
// titles and pages.
func BuildPrompt(question string, chunks []annotate.RetrievedChunk) string {
	var b strings.Builder

	b.WriteString("Retrieved excerpts:\n\n")
	if len(chunks) == 0 {
		b.WriteString("(no excerpts were retrieved for this question)\n\n")
	}
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "--- Excerpt %d", i+1)
		if chunk.Title != "" {
			fmt.Fprintf(&b, " | %s", chunk.Title)
		}
		if chunk.Page != nil {
			fmt.Fprintf(&b, " | page %d", *chunk.Page)
		}
		b.WriteString(" ---\n")
		b.WriteString(chunk.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
