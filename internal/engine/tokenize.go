package engine

import (
	"iter"
	"slices"
	"strings"
	"unicode"
)

// CommentMarker starts a comment running to the end of the line.
const CommentMarker = '#'

// Row is one tokenized, non-comment line of a section.
type Row struct {
	Line   int      // 1-based line number in the original file.
	Tokens []string // Whitespace-delimited tokens, never empty.
}

// Lines lazily tokenizes the text of one section. firstLine is the file line
// number of the first line of text. Blank and comment-only lines yield
// nothing; trailing comments are stripped. No numeric coercion happens here.
func Lines(text string, firstLine int) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		lineNo := firstLine
		for line := range strings.SplitSeq(text, "\n") {
			n := lineNo
			lineNo++
			line = strings.TrimSuffix(line, "\r")
			line = strings.TrimLeftFunc(line, unicode.IsSpace)
			if line == "" || line[0] == CommentMarker {
				continue
			}
			toks := strings.Fields(stripComment(line))
			if len(toks) == 0 {
				continue
			}
			if !yield(Row{Line: n, Tokens: toks}) {
				return
			}
		}
	}
}

// Tokenize is the eager form of Lines.
func Tokenize(text string, firstLine int) []Row {
	return slices.Collect(Lines(text, firstLine))
}

// stripComment cuts the line at the first unescaped marker. An escaped
// marker (\#) is kept as a literal '#'.
func stripComment(line string) string {
	if !strings.ContainsRune(line, CommentMarker) {
		return line
	}
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == CommentMarker {
			b.WriteByte(CommentMarker)
			i++
			continue
		}
		if c == CommentMarker {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}
