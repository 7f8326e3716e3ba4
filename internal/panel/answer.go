package panel

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// AnswerLimit is the length above which an answer is collapsed.
const AnswerLimit = 180

var (
	paragraphBreak = regexp.MustCompile(`\n{2,}`)
	sentenceEnd    = regexp.MustCompile(`[.!?]\s+`)
	textPolicy     = bluemonday.StrictPolicy()
)

// AnswerView is the rendered advice answer with a collapsed/expanded
// disclosure.
type AnswerView struct {
	Full        string `json:"full"`
	Short       string `json:"short"`
	Decision    string `json:"decision,omitempty"`
	Collapsible bool   `json:"collapsible"`
	Expanded    bool   `json:"expanded"`
}

// NewAnswerView builds the view for an answer, an optional decision label and
// an optional server summary.
func NewAnswerView(answer, decision, serverSummary string) *AnswerView {
	full := dedupeParagraphs(sanitize(answer))
	summary := sanitize(serverSummary)

	short := strings.TrimSpace(summary)
	if short == "" {
		if first := firstSentence(full); first != "" {
			short = strings.TrimSpace(first)
		} else {
			short = strings.TrimSpace(truncate(full, AnswerLimit))
		}
	}

	v := &AnswerView{
		Full:     full,
		Short:    short,
		Decision: strings.TrimSpace(sanitize(decision)),
	}
	switch {
	case summary != "":
		v.Collapsible = true
	case len([]rune(full)) > AnswerLimit:
		v.Collapsible = true
		if v.Short == "" {
			v.Short = truncate(full, AnswerLimit) + "..."
		}
	}
	return v
}

// PlainAnswer wraps a status message such as "Thinking…".
func PlainAnswer(text string) *AnswerView {
	return &AnswerView{Full: text, Short: text}
}

// Toggle switches between the collapsed and expanded view.
func (v *AnswerView) Toggle() {
	if v.Collapsible {
		v.Expanded = !v.Expanded
	}
}

// Visible returns the text currently on display. The decision label only
// shows on an expanded collapsible answer.
func (v *AnswerView) Visible() string {
	if !v.Collapsible {
		return v.Full
	}
	if !v.Expanded {
		return v.Short
	}
	if v.Decision != "" {
		return v.Full + "\n" + v.decisionLine()
	}
	return v.Full
}

// Text returns the whole answer regardless of disclosure state.
func (v *AnswerView) Text() string {
	if v.Decision != "" {
		return v.Full + "\n" + v.decisionLine()
	}
	return v.Full
}

func (v *AnswerView) decisionLine() string {
	return "— Decision: " + v.Decision
}

// sanitize treats the answer as plain text: markup-looking content is kept
// verbatim and never interpreted as elements.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	return html.UnescapeString(textPolicy.Sanitize(html.EscapeString(s)))
}

func dedupeParagraphs(s string) string {
	var out []string
	for _, p := range paragraphBreak.Split(s, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// firstSentence returns s up to and including the first sentence terminator
// that is followed by whitespace, or all of s.
func firstSentence(s string) string {
	loc := sentenceEnd.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]+1]
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
