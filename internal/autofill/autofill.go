// Package autofill writes stored profile values into matching form controls.
package autofill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/fields"
)

// Control is a fillable form element, static or live.
type Control interface {
	Evidence() fields.Evidence
	Type() string
	SetValue(ctx context.Context, v string) error
	Dispatch(ctx context.Context, event string) error
}

// Events fired after a value is written, in order.
var Events = []string{"input", "change"}

// Result summarises one autofill pass.
type Result struct {
	Filled int      `json:"filled"`
	Keys   []string `json:"keys"`
}

// Message is the user-facing summary of r.
func (r Result) Message() string {
	if r.Filled == 0 {
		return "No matching fields found."
	}
	return fmt.Sprintf("Filled %d field(s).", r.Filled)
}

// Filler runs autofill passes.
type Filler struct {
	logger *zap.Logger
}

// NewFiller creates a Filler.
func NewFiller(logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{logger: logger}
}

// Fill writes profile values into controls. For each control the candidates
// are tried in order and the first one with a non-empty value and a keyword
// hit is written, followed by the input and change events. Checkbox and radio
// controls are never written; a hit on one moves on to the next candidate.
// Errors from individual controls are logged and the control is skipped.
func (f *Filler) Fill(ctx context.Context, p *domain.Profile, controls []Control) (Result, error) {
	result := Result{Keys: []string{}}
	candidates := fields.Candidates(p)
	if len(candidates) == 0 {
		return result, nil
	}

	for i, ctl := range controls {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ev := ctl.Evidence()
		for _, c := range candidates {
			if c.Value == "" || !fields.Match(c, ev) {
				continue
			}
			if isToggle(ctl.Type()) {
				continue
			}

			if err := write(ctx, ctl, c.Value); err != nil {
				f.logger.Warn("Autofill skipped control",
					zap.Int("index", i),
					zap.String("key", c.Key),
					zap.Error(err),
				)
				break
			}
			result.Filled++
			result.Keys = append(result.Keys, c.Key)
			break
		}
	}

	f.logger.Debug("Autofill pass complete",
		zap.Int("controls", len(controls)),
		zap.Int("filled", result.Filled),
	)
	return result, nil
}

func write(ctx context.Context, ctl Control, v string) error {
	if err := ctl.SetValue(ctx, v); err != nil {
		return fmt.Errorf("setting value: %w", err)
	}
	for _, ev := range Events {
		if err := ctl.Dispatch(ctx, ev); err != nil {
			return fmt.Errorf("dispatching %s: %w", ev, err)
		}
	}
	return nil
}

func isToggle(typ string) bool {
	return typ == "checkbox" || typ == "radio"
}
