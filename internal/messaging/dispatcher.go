// Package messaging routes inbound control messages, received over Redis
// pub/sub or HTTP, to registered handlers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TypeTestAutofill asks the receiver to run autofill on the current page.
const TypeTestAutofill = "MVP_TEST_AUTOFILL"

// Message is an inbound control message.
type Message struct {
	Type string `json:"type"`
}

// Handler processes one message type.
type Handler func(ctx context.Context, msg Message) error

// Dispatcher maps message types to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register installs h for msgType, replacing any previous handler.
func (d *Dispatcher) Register(msgType string, h Handler) {
	d.mu.Lock()
	d.handlers[msgType] = h
	d.mu.Unlock()
}

// Dispatch runs the handler for msg. Unknown types are ignored and reported
// as not handled.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (bool, error) {
	d.mu.RLock()
	h, ok := d.handlers[msg.Type]
	d.mu.RUnlock()

	if !ok {
		d.logger.Debug("ignoring message", zap.String("type", msg.Type))
		return false, nil
	}
	if err := h(ctx, msg); err != nil {
		return true, fmt.Errorf("handling %s: %w", msg.Type, err)
	}
	return true, nil
}

// Listen dispatches messages from a Redis subscription until ctx is done or
// the channel closes. Malformed payloads and handler errors are logged and
// skipped.
func (d *Dispatcher) Listen(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}

			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				d.logger.Warn("malformed message", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			if _, err := d.Dispatch(ctx, msg); err != nil {
				d.logger.Error("message handler failed", zap.String("type", msg.Type), zap.Error(err))
			}
		}
	}
}
