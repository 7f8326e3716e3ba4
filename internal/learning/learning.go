// Package learning captures values the user types into forms and stores them
// in the profile under an inferred key.
package learning

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/fields"
	"github.com/smartfill/smartfill/internal/observability"
)

// ObservedControl is a control whose current value can be read.
type ObservedControl interface {
	Evidence() fields.Evidence
	Type() string
	Value() string
}

// Event is a DOM event fired at an observed control.
type Event struct {
	Kind    domain.EventKind
	Control ObservedControl
}

// Store persists a learned value.
type Store interface {
	Learn(ctx context.Context, key, value string) error
}

// Notifier shows a transient notice to the user.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// Outcome reasons. An empty Reason means the value was saved.
const (
	ReasonNotTriggered = "not_triggered"
	ReasonPassword     = "password_field"
	ReasonEmpty        = "empty_value"
	ReasonNoKey        = "no_key"
	ReasonInvalid      = "invalid_value"
	ReasonStoreFailed  = "store_failed"
)

// Outcome reports what happened to one observation.
type Outcome struct {
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Saved  bool   `json:"saved"`
	Reason string `json:"reason,omitempty"`
}

// Input-event thresholds: identifiers are captured as soon as they reach
// full length rather than waiting for blur.
const (
	AadhaarLength = 12
	PANLength     = 10
)

// Learner turns observed edits into profile writes.
type Learner struct {
	store    Store
	notifier Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewLearner creates a Learner. notifier and metrics may be nil.
func NewLearner(store Store, notifier Notifier, metrics *observability.Metrics, logger *zap.Logger) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Learner{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Triggers reports whether ev should be handled. change and blur always
// trigger; input triggers only once an Aadhaar or PAN value reaches its
// full length.
func Triggers(ev Event) bool {
	switch ev.Kind {
	case domain.EventChange, domain.EventBlur:
		return true
	case domain.EventInput:
		key, ok := fields.InferKey(ev.Control.Evidence())
		if !ok {
			return false
		}
		n := len([]rune(domain.StripSpaces(ev.Control.Value())))
		return (key == domain.KeyAadhaar && n == AadhaarLength) ||
			(key == domain.KeyPAN && n == PANLength)
	}
	return false
}

// Observe handles one event. It never fails: every problem is reported in
// the returned Outcome and logged.
func (l *Learner) Observe(ctx context.Context, ev Event) Outcome {
	out := l.observe(ctx, ev)
	if out.Saved {
		l.metrics.RecordObservation("saved")
	} else {
		l.metrics.RecordObservation(out.Reason)
	}
	return out
}

func (l *Learner) observe(ctx context.Context, ev Event) Outcome {
	if ev.Control == nil || !Triggers(ev) {
		return Outcome{Reason: ReasonNotTriggered}
	}
	if strings.EqualFold(ev.Control.Type(), "password") {
		return Outcome{Reason: ReasonPassword}
	}

	raw := strings.TrimSpace(ev.Control.Value())
	if raw == "" {
		return Outcome{Reason: ReasonEmpty}
	}

	key, ok := fields.InferKey(ev.Control.Evidence())
	if !ok {
		return Outcome{Reason: ReasonNoKey}
	}

	value := fields.Sanitize(key, raw)
	if err := domain.ValidateField(key, value); err != nil {
		l.logger.Debug("Dropped invalid observed value",
			zap.String("key", key),
			zap.Error(err),
		)
		return Outcome{Key: key, Reason: ReasonInvalid}
	}

	if err := l.store.Learn(ctx, key, value); err != nil {
		l.logger.Warn("Failed to persist learned value",
			zap.String("key", key),
			zap.Error(err),
		)
		return Outcome{Key: key, Reason: ReasonStoreFailed}
	}

	if l.notifier != nil {
		l.notifier.Notify(ctx, SavedNotice(key))
	}
	l.logger.Debug("Learned field", zap.String("key", key), zap.String("event", string(ev.Kind)))

	return Outcome{Key: key, Value: value, Saved: true}
}

// SavedNotice is the toast text shown after a value is stored.
func SavedNotice(key string) string {
	return fmt.Sprintf("Saved “%s”", key)
}
