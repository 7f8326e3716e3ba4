package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/profile"
	"github.com/smartfill/smartfill/pkg/httputil"
)

// ProfileHandler handles profile-related requests
type ProfileHandler struct {
	svc     *profile.Service
	demo    profile.Source
	maxBody int64
	logger  *zap.Logger
}

// NewProfileHandler creates a new profile handler. demo is the source the
// demo profile is reloaded from.
func NewProfileHandler(svc *profile.Service, demo profile.Source, maxBody int64, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		svc:     svc,
		demo:    demo,
		maxBody: maxBody,
		logger:  logger,
	}
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Load(r.Context())
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, p)
}

// Update handles PUT /api/v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var details domain.ProfileDetails
	if err := httputil.DecodeJSON(w, r, &details, h.maxBody); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	p, err := h.svc.SaveDetails(r.Context(), details)
	if err != nil {
		if !domain.IsValidationError(err) {
			h.logger.Error("Failed to save profile", zap.Error(err))
		}
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Profile saved")
	httputil.JSON(w, http.StatusOK, p)
}

// GetDemo handles GET /api/v1/profile/demo
func (h *ProfileHandler) GetDemo(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.DemoProfile(r.Context())
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, doc)
}

// ReloadDemo handles POST /api/v1/profile/demo
func (h *ProfileHandler) ReloadDemo(w http.ResponseWriter, r *http.Request) {
	if h.demo == nil {
		httputil.JSONError(w, http.StatusServiceUnavailable, domain.ErrCodeServiceUnavail, "No demo profile source configured", nil)
		return
	}

	doc, err := h.svc.LoadDemoProfile(r.Context(), h.demo)
	if err != nil {
		h.logger.Error("Failed to reload demo profile", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Demo profile reloaded")
	httputil.JSON(w, http.StatusOK, doc)
}
