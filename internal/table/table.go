// Package table extracts the first HTML table of a document as rows of
// cell text.
package table

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"steinbockcal/internal/model"
)

// ErrNoTable is returned when the document contains no <table> element.
var ErrNoTable = errors.New("no table found")

// Extractor locates the first table of an HTML document.
type Extractor interface {
	FirstTable(r io.Reader) (*Rows, error)
}

// HTMLExtractor is the Extractor backed by golang.org/x/net/html.
type HTMLExtractor struct{}

// FirstTable parses r and returns the rows of its first table, or
// ErrNoTable when the document has none.
func (HTMLExtractor) FirstTable(r io.Reader) (*Rows, error) {
	return FirstTable(r)
}

// Rows is a single-use sequence over a table's rows in document order,
// header row included.
type Rows struct {
	table    *html.Node
	consumed bool
}

// FirstTable parses r and returns the rows of its first <table>.
func FirstTable(r io.Reader) (*Rows, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("html parse: %w", err)
	}
	t := findFirst(doc, atom.Table)
	if t == nil {
		return nil, ErrNoTable
	}
	return &Rows{table: t}, nil
}

// All yields (index, row) pairs lazily. Rows can be consumed once; later
// calls yield nothing.
func (rs *Rows) All() iter.Seq2[int, model.Row] {
	return func(yield func(int, model.Row) bool) {
		if rs == nil || rs.consumed {
			return
		}
		rs.consumed = true

		i := 0
		walkRows(rs.table, func(tr *html.Node) bool {
			ok := yield(i, cells(tr))
			i++
			return ok
		})
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// walkRows visits the <tr> elements owned by table, descending through
// thead/tbody/tfoot but not into nested tables. It returns false once fn
// asks to stop.
func walkRows(n *html.Node, fn func(tr *html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			if !fn(c) {
				return false
			}
		case atom.Thead, atom.Tbody, atom.Tfoot:
			if !walkRows(c, fn) {
				return false
			}
		}
	}
	return true
}

// cells returns the text of the row's <td> children. <th> cells are row or
// column headers and are not part of the data.
func cells(tr *html.Node) model.Row {
	row := model.Row{}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			row = append(row, cellText(c))
		}
	}
	return row
}

func cellText(n *html.Node) string {
	var b strings.Builder
	collectText(n, &b)
	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			b.WriteString(" ")
			return
		case atom.Script, atom.Style:
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	// Block content inside a cell still separates words.
	if n.Type == html.ElementNode && (n.DataAtom == atom.Div || n.DataAtom == atom.P) {
		b.WriteString(" ")
	}
}
