// Package normalize repairs line-break and hyphenation artifacts that PDF
// text extraction introduces mid-word.
package normalize

import "regexp"

// The substitutions run in order, each over the previous step's output.
// A hyphen spanning a line break must be fixed before inline whitespace
// collapsing hides the line-break evidence.
var (
	// "com - petence" -> "competence" (spurious spacing around a hyphen).
	spacedHyphen = regexp.MustCompile(`(\w+)\s+-\s+(\w+)`)
	// "compe-\ntence" -> "competence" (end-of-line hyphenation break).
	lineBreakHyphen = regexp.MustCompile(`(\w+)-\s*\n\s*(\w+)`)
	// "compe- tence" -> "competence" (hyphen plus trailing whitespace).
	trailingHyphen = regexp.MustCompile(`(\w+)-\s+(\w+)`)
	// Runs of 3+ newlines collapse to a paragraph break.
	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// WordBreaks removes spaces and hyphens that appear to be line-break
// artifacts in the middle of words. Word characters on both sides are the
// only signal used, so genuine compounds broken across lines ("well-known")
// are over-merged too; that is an accepted limitation of the heuristic.
// Empty input is returned unchanged.
func WordBreaks(text string) string {
	if text == "" {
		return text
	}

	text = spacedHyphen.ReplaceAllString(text, "$1$2")
	text = lineBreakHyphen.ReplaceAllString(text, "$1$2")
	text = trailingHyphen.ReplaceAllString(text, "$1$2")
	text = excessNewlines.ReplaceAllString(text, "\n\n")

	return text
}
