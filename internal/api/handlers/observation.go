package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/learning"
	"github.com/smartfill/smartfill/pkg/httputil"
)

// ObservationHandler feeds control edits reported by pages to the learner
type ObservationHandler struct {
	learner *learning.Learner
	maxBody int64
	logger  *zap.Logger
}

// NewObservationHandler creates a new observation handler
func NewObservationHandler(learner *learning.Learner, maxBody int64, logger *zap.Logger) *ObservationHandler {
	return &ObservationHandler{
		learner: learner,
		maxBody: maxBody,
		logger:  logger,
	}
}

// Create handles POST /api/v1/observations
func (h *ObservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var obs learning.Observation
	if err := httputil.DecodeJSON(w, r, &obs, h.maxBody); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if !domain.EventKind(obs.Kind).IsValid() {
		httputil.ErrorFromDomain(w, domain.ValidationError("kind", "kind must be one of change, blur, input"))
		return
	}

	out := h.learner.Observe(r.Context(), obs.Event())
	if out.Reason == learning.ReasonStoreFailed {
		httputil.JSONError(w, http.StatusInternalServerError, domain.ErrCodeStore, "Failed to store learned value", map[string]any{
			"key": out.Key,
		})
		return
	}

	httputil.JSON(w, http.StatusOK, out)
}
