package saf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/saf/i18n"
)

// PathRef builds issue pointers (/histo/<entry>/<section>/<row>/<column>) in
// a chain-safe way and creates Issues positioned at them.
type PathRef interface {
	Field(name string) PathRef
	Index(i int) PathRef
	Pointer() string
	Issue(code string, kv ...any) Issue
}

// EntryRef returns the PathRef of the i-th entry; i < 0 yields the root.
func EntryRef(i int) PathRef {
	if i < 0 {
		return &pathRef{entry: -1, row: -1, col: -1}
	}
	return &pathRef{parts: []string{"histo", strconv.Itoa(i)}, entry: i, row: -1, col: -1}
}

type pathRef struct {
	parts   []string
	entry   int
	section string
	row     int
	col     int
}

func (p *pathRef) clone(part string) *pathRef {
	c := *p
	c.parts = append(append([]string{}, p.parts...), part)
	return &c
}

// Field appends a named segment. Section names are remembered so the issue
// carries them.
func (p *pathRef) Field(name string) PathRef {
	if name == "" {
		return p
	}
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	c := p.clone(esc)
	if c.section == "" {
		c.section = name
	}
	return c
}

// Index appends a numeric segment: the first under a section is the row, the
// second the column.
func (p *pathRef) Index(i int) PathRef {
	c := p.clone(strconv.Itoa(i))
	switch {
	case c.section != "" && c.row < 0:
		c.row = i
	case c.section != "" && c.col < 0:
		c.col = i
	}
	return c
}

func (p *pathRef) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

// Issue creates an Issue at the pointer. kv are alternating param keys and
// values; the message is localized from the code and params.
func (p *pathRef) Issue(code string, kv ...any) Issue {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return Issue{
		Path:    p.Pointer(),
		Code:    code,
		Message: i18n.T(code, stringParams(m)),
		Entry:   p.entry,
		Section: p.section,
		Row:     p.row,
		Column:  p.col,
		Params:  m,
	}
}

func stringParams(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}
