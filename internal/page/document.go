// Package page models a static HTML document: its form controls, label
// associations and visible text.
package page

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page.
type Document struct {
	root     *html.Node
	controls []*Control
}

// Parse reads an HTML page and indexes its controls and labels.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	doc := &Document{root: root}
	doc.controls = collectControls(root)
	doc.resolveLabels()
	return doc, nil
}

// ParseString parses an HTML page held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Controls returns every input, textarea and select in document order.
func (d *Document) Controls() []*Control {
	return d.controls
}

// Title returns the trimmed <title> text.
func (d *Document) Title() string {
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			return strings.TrimSpace(textContent(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(d.root)
}

// Render writes the document, including any values set on its controls.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document to a string.
func (d *Document) String() string {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return ""
	}
	return sb.String()
}

func collectControls(root *html.Node) []*Control {
	var out []*Control
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isControl(n) {
			out = append(out, &Control{node: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func isControl(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return true
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrOr(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
