package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/smartfill/smartfill/internal/fields"
)

type controlDesc struct {
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
}

// Control is a live form element.
type Control struct {
	handle playwright.ElementHandle
	desc   controlDesc
}

// Evidence returns the control's name, id, placeholder and label text.
func (c *Control) Evidence() fields.Evidence {
	return fields.Evidence{
		Name:        c.desc.Name,
		ID:          c.desc.ID,
		Placeholder: c.desc.Placeholder,
		Label:       c.desc.Label,
	}
}

// Type returns the control type as the page reports it.
func (c *Control) Type() string {
	if c.desc.Type == "" {
		return "text"
	}
	return c.desc.Type
}

// Value reads the current value.
func (c *Control) Value() string {
	v, err := c.handle.InputValue()
	if err != nil {
		return ""
	}
	return v
}

// SetValue focuses the control and writes v. Text inputs are filled;
// selects get their value assigned.
func (c *Control) SetValue(ctx context.Context, v string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if c.desc.Tag == "select" {
		_, err = c.handle.Evaluate(setValueScript, v)
	} else {
		err = c.handle.Fill(v)
	}
	if err != nil {
		return fmt.Errorf("setting %s value: %w", c.desc.Tag, err)
	}
	return nil
}

// Dispatch fires a bubbling event of the given type.
func (c *Control) Dispatch(ctx context.Context, event string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.handle.DispatchEvent(event, map[string]interface{}{"bubbles": true}); err != nil {
		return fmt.Errorf("dispatching %s: %w", event, err)
	}
	return nil
}
