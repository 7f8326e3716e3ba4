package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// resolveLabels associates each <label> with a control: through its for
// attribute when present, otherwise with the first control nested inside it.
// Later labels replace earlier ones for the same control.
func (d *Document) resolveLabels() {
	byNode := make(map[*html.Node]*Control, len(d.controls))
	for _, c := range d.controls {
		byNode[c.node] = c
	}
	byID := indexIDs(d.root)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Label {
			txt := collapseSpace(textContent(n))
			if forID, ok := attr(n, "for"); ok && forID != "" {
				if c, ok := byNode[byID[forID]]; ok {
					c.label = txt
				}
			} else if target := firstControl(n); target != nil {
				if c, ok := byNode[target]; ok {
					c.label = txt
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(d.root)
}

// indexIDs maps each id to the first element carrying it.
func indexIDs(root *html.Node) map[string]*html.Node {
	out := make(map[string]*html.Node)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id, ok := attr(n, "id"); ok && id != "" {
				if _, seen := out[id]; !seen {
					out[id] = n
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(root)
	return out
}

func firstControl(n *html.Node) *html.Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if isControl(ch) {
			return ch
		}
		if found := firstControl(ch); found != nil {
			return found
		}
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
