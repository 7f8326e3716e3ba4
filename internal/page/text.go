package page

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultTextLimit bounds the visible text handed to the classifier.
const DefaultTextLimit = 60000

var hiddenStyle = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// VisibleText returns the document's visible text, lower-cased and truncated
// to limit runes. Each non-empty text node contributes its trimmed content
// preceded by a single space. A limit <= 0 means DefaultTextLimit.
func (d *Document) VisibleText(limit int) string {
	if limit <= 0 {
		limit = DefaultTextLimit
	}

	var (
		sb    strings.Builder
		count int
	)
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && isHidden(n) {
			return true
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteByte(' ')
				sb.WriteString(t)
				count += 1 + utf8.RuneCountInString(t)
				if count >= limit {
					return false
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)

	return strings.ToLower(truncateRunes(sb.String(), limit))
}

func isHidden(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return true
	case atom.Input:
		if strings.EqualFold(attrOr(n, "type"), "hidden") {
			return true
		}
	}
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	if strings.EqualFold(attrOr(n, "aria-hidden"), "true") {
		return true
	}
	if style, ok := attr(n, "style"); ok {
		for _, re := range hiddenStyle {
			if re.MatchString(style) {
				return true
			}
		}
	}
	return false
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}
