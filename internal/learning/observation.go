package learning

import (
	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/fields"
)

// Observation is a control snapshot reported by a remote page, such as the
// payload of the observations endpoint or a browser binding call.
type Observation struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
	InputType   string `json:"type"`
	CurrentVal  string `json:"value"`
}

func (o Observation) Evidence() fields.Evidence {
	return fields.Evidence{
		Name:        o.Name,
		ID:          o.ID,
		Placeholder: o.Placeholder,
		Label:       o.Label,
	}
}

func (o Observation) Type() string {
	if o.InputType == "" {
		return "text"
	}
	return o.InputType
}

func (o Observation) Value() string { return o.CurrentVal }

// Event wraps the observation as an Event of its reported kind.
func (o Observation) Event() Event {
	return Event{Kind: domain.EventKind(o.Kind), Control: o}
}
