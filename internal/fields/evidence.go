// Package fields maps form controls to profile keys using the textual evidence
// a page exposes around them.
package fields

import "strings"

// Evidence is the text a control carries: its name, id and placeholder
// attributes plus the text of an associated label.
type Evidence struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
}

// Sources returns name, id, placeholder and label lower-cased, in that order.
func (e Evidence) Sources() []string {
	return []string{
		strings.ToLower(e.Name),
		strings.ToLower(e.ID),
		strings.ToLower(e.Placeholder),
		strings.ToLower(e.Label),
	}
}

// Pool joins the lower-cased sources with single spaces.
func (e Evidence) Pool() string {
	return strings.Join(e.Sources(), " ")
}

// IsEmpty reports whether the control carries no text at all.
func (e Evidence) IsEmpty() bool {
	return strings.TrimSpace(e.Name+e.ID+e.Placeholder+e.Label) == ""
}
