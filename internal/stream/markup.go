package stream

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Element names of the SAF markup.
const (
	EntryElement       = "Histo"
	DescriptionSection = "Description"
	StatisticsSection  = "Statistics"
	DataSection        = "Data"
)

// Sections lists the required sections of an entry in decode order.
var Sections = []string{DescriptionSection, StatisticsSection, DataSection}

const (
	declaration = `<?xml version="1.0"?>`
	rootName    = "saf"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Section is the raw text of one section together with the file line where
// the text starts.
type Section struct {
	Name string
	Text string
	Line int
}

// Entry is one <Histo> element. Only the first occurrence of each section is
// kept.
type Entry struct {
	Index    int
	Line     int
	Sections map[string]Section
}

// Section returns the named section and whether it was present.
func (e Entry) Section(name string) (Section, bool) {
	s, ok := e.Sections[name]
	return s, ok
}

// SyntaxError reports input that is not well-formed once wrapped.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed input: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Wrap turns a sequence of sibling entries into one well-formed document by
// adding a declaration and a synthetic root element. A BOM or declaration
// already present in raw is removed first. Nothing is inserted before the
// first raw byte on a new line, so line numbers match the raw input.
func Wrap(raw []byte) []byte {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if trimmed := bytes.TrimLeft(raw, " \t\r\n"); bytes.HasPrefix(trimmed, []byte("<?xml")) {
		if end := bytes.Index(trimmed, []byte("?>")); end >= 0 {
			// keep the newlines consumed by the declaration so lines stay aligned
			skipped := raw[:len(raw)-len(trimmed)+end+2]
			raw = append(bytes.Repeat([]byte("\n"), bytes.Count(skipped, []byte("\n"))), trimmed[end+2:]...)
		}
	}
	out := make([]byte, 0, len(declaration)+len(rootName)*2+5+len(raw))
	out = append(out, declaration...)
	out = append(out, '<')
	out = append(out, rootName...)
	out = append(out, '>')
	out = append(out, raw...)
	out = append(out, "</"...)
	out = append(out, rootName...)
	out = append(out, '>')
	return out
}

// Parse wraps raw and parses the complete document before returning, so a
// syntax error anywhere yields no entries at all.
func Parse(raw []byte) ([]Entry, error) {
	dec := xml.NewDecoder(bytes.NewReader(Wrap(raw)))
	var (
		entries []Entry
		depth   int
		cur     *Entry
		sec     *Section
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, _ := dec.InputPos()
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				line = se.Line
			}
			return nil, &SyntaxError{Line: line, Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			line, _ := dec.InputPos()
			switch {
			case depth == 2 && t.Name.Local == EntryElement:
				cur = &Entry{Index: len(entries), Line: line, Sections: map[string]Section{}}
			case depth == 3 && cur != nil && slices.Contains(Sections, t.Name.Local):
				if _, dup := cur.Sections[t.Name.Local]; !dup {
					sec = &Section{Name: t.Name.Local, Line: line}
					text.Reset()
				}
			}
		case xml.CharData:
			if sec != nil && depth == 3 {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case depth == 3 && sec != nil && t.Name.Local == sec.Name:
				sec.Text = text.String()
				cur.Sections[sec.Name] = *sec
				sec = nil
			case depth == 2 && cur != nil && t.Name.Local == EntryElement:
				entries = append(entries, *cur)
				cur = nil
			}
			depth--
		}
	}
	return entries, nil
}

