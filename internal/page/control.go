package page

import (
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/smartfill/smartfill/internal/fields"
)

// Control is a form element of a parsed document.
type Control struct {
	node   *html.Node
	label  string
	events []string
}

// Tag returns the element name: input, textarea or select.
func (c *Control) Tag() string {
	return c.node.Data
}

// Type returns the lower-cased type attribute. Inputs without one are "text";
// textarea and select report their tag.
func (c *Control) Type() string {
	switch c.node.DataAtom {
	case atom.Textarea:
		return "textarea"
	case atom.Select:
		return "select-one"
	}
	t := strings.ToLower(strings.TrimSpace(attrOr(c.node, "type")))
	if t == "" {
		return "text"
	}
	return t
}

func (c *Control) Name() string        { return attrOr(c.node, "name") }
func (c *Control) ID() string          { return attrOr(c.node, "id") }
func (c *Control) Placeholder() string { return attrOr(c.node, "placeholder") }

// Label returns the text of the associated label, if any.
func (c *Control) Label() string { return c.label }

// Evidence collects the control's textual evidence.
func (c *Control) Evidence() fields.Evidence {
	return fields.Evidence{
		Name:        c.Name(),
		ID:          c.ID(),
		Placeholder: c.Placeholder(),
		Label:       c.label,
	}
}

// Value returns the current value of the control.
func (c *Control) Value() string {
	switch c.node.DataAtom {
	case atom.Textarea:
		return textContent(c.node)
	case atom.Select:
		var first *html.Node
		for _, opt := range c.options() {
			if first == nil {
				first = opt
			}
			if _, ok := attr(opt, "selected"); ok {
				return optionValue(opt)
			}
		}
		if first != nil {
			return optionValue(first)
		}
		return ""
	}
	return attrOr(c.node, "value")
}

// SetValue writes v into the control. A select with no matching option ends
// up with nothing selected.
func (c *Control) SetValue(_ context.Context, v string) error {
	switch c.node.DataAtom {
	case atom.Textarea:
		for ch := c.node.FirstChild; ch != nil; {
			next := ch.NextSibling
			c.node.RemoveChild(ch)
			ch = next
		}
		c.node.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	case atom.Select:
		for _, opt := range c.options() {
			if optionValue(opt) == v {
				setAttr(opt, "selected", "")
			} else {
				removeAttr(opt, "selected")
			}
		}
	default:
		setAttr(c.node, "value", v)
	}
	return nil
}

// Dispatch records a synthetic event fired at the control.
func (c *Control) Dispatch(_ context.Context, event string) error {
	c.events = append(c.events, event)
	return nil
}

// Events returns the events dispatched so far, oldest first.
func (c *Control) Events() []string {
	return c.events
}

func (c *Control) options() []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Option {
			out = append(out, n)
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(c.node)
	return out
}

func optionValue(opt *html.Node) string {
	if v, ok := attr(opt, "value"); ok {
		return v
	}
	return collapseSpace(textContent(opt))
}
