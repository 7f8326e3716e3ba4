package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/messaging"
	"github.com/smartfill/smartfill/pkg/httputil"
)

// MessageHandler accepts control messages over HTTP
type MessageHandler struct {
	dispatcher *messaging.Dispatcher
	logger     *zap.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(dispatcher *messaging.Dispatcher, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// MessageResponse reports whether a handler took the message
type MessageResponse struct {
	Type    string `json:"type"`
	Handled bool   `json:"handled"`
}

// Create handles POST /api/v1/messages
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var msg messaging.Message
	if err := httputil.DecodeJSON(w, r, &msg, 4096); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if strings.TrimSpace(msg.Type) == "" {
		httputil.ErrorFromDomain(w, domain.ValidationError("type", "type is required"))
		return
	}

	handled, err := h.dispatcher.Dispatch(r.Context(), msg)
	if err != nil {
		h.logger.Warn("Message handler failed", zap.String("type", msg.Type), zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Type: msg.Type, Handled: handled})
}
