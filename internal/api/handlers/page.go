package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/autofill"
	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/observability"
	"github.com/smartfill/smartfill/internal/page"
	"github.com/smartfill/smartfill/internal/panel"
	"github.com/smartfill/smartfill/internal/profile"
	"github.com/smartfill/smartfill/pkg/httputil"
)

// PageHandler analyzes and autofills pages posted as HTML. The last analyzed
// page is kept as the current page for message-triggered autofill.
type PageHandler struct {
	panel     *panel.Panel
	filler    *autofill.Filler
	profiles  *profile.Service
	textLimit int
	maxBody   int64
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu      sync.Mutex
	current string
}

// PageHandlerConfig contains the dependencies of a PageHandler
type PageHandlerConfig struct {
	Panel     *panel.Panel
	Filler    *autofill.Filler
	Profiles  *profile.Service
	TextLimit int
	MaxBody   int64
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(cfg PageHandlerConfig) *PageHandler {
	return &PageHandler{
		panel:     cfg.Panel,
		filler:    cfg.Filler,
		profiles:  cfg.Profiles,
		textLimit: cfg.TextLimit,
		maxBody:   cfg.MaxBody,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// AnalyzeRequest is the body of POST /api/v1/pages/analyze
type AnalyzeRequest struct {
	URL      string `json:"url"`
	HTML     string `json:"html"`
	Question string `json:"question,omitempty"`
}

// AnalyzeResponse is the panel state after an analysis
type AnalyzeResponse struct {
	Title string `json:"title"`
	panel.Snapshot
}

// AutofillRequest is the body of POST /api/v1/pages/autofill
type AutofillRequest struct {
	HTML string `json:"html"`
}

// AutofillResponse reports one autofill pass
type AutofillResponse struct {
	Filled  int      `json:"filled"`
	Keys    []string `json:"keys"`
	HTML    string   `json:"html"`
	Message string   `json:"message"`
}

// Analyze handles POST /api/v1/pages/analyze
func (h *PageHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := httputil.DecodeJSON(w, r, &req, h.maxBody); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		httputil.ErrorFromDomain(w, domain.ValidationError("html", "html is required"))
		return
	}

	doc, err := page.ParseString(req.HTML)
	if err != nil {
		httputil.ErrorFromDomain(w, domain.ErrPageParse(err))
		return
	}

	h.mu.Lock()
	h.current = req.HTML
	h.mu.Unlock()

	text := doc.VisibleText(h.textLimit)
	snap, err := h.panel.Analyze(r.Context(), req.URL, text)
	if err == nil && strings.TrimSpace(req.Question) != "" {
		snap, err = h.panel.Ask(r.Context(), req.URL, req.Question, text)
	}
	if err != nil {
		h.writePanelError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, AnalyzeResponse{Title: doc.Title(), Snapshot: snap})
}

// Autofill handles POST /api/v1/pages/autofill
func (h *PageHandler) Autofill(w http.ResponseWriter, r *http.Request) {
	var req AutofillRequest
	if err := httputil.DecodeJSON(w, r, &req, h.maxBody); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		httputil.ErrorFromDomain(w, domain.ValidationError("html", "html is required"))
		return
	}

	resp, err := h.fill(r.Context(), req.HTML, "http")
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// AutofillCurrent fills the last analyzed page. It serves the
// MVP_TEST_AUTOFILL message.
func (h *PageHandler) AutofillCurrent(ctx context.Context) (AutofillResponse, error) {
	h.mu.Lock()
	current := h.current
	h.mu.Unlock()

	if current == "" {
		return AutofillResponse{}, domain.NotFoundError("page", "current")
	}

	resp, err := h.fill(ctx, current, "message")
	if err != nil {
		return resp, err
	}

	h.mu.Lock()
	if h.current == current {
		h.current = resp.HTML
	}
	h.mu.Unlock()

	h.logger.Info("Autofilled current page",
		zap.Int("filled", resp.Filled),
		zap.Strings("keys", resp.Keys),
	)
	return resp, nil
}

func (h *PageHandler) fill(ctx context.Context, src, source string) (AutofillResponse, error) {
	doc, err := page.ParseString(src)
	if err != nil {
		return AutofillResponse{}, domain.ErrPageParse(err)
	}

	p, err := h.profiles.Load(ctx)
	if err != nil {
		return AutofillResponse{}, err
	}

	parsed := doc.Controls()
	controls := make([]autofill.Control, len(parsed))
	for i, c := range parsed {
		controls[i] = c
	}

	result, err := h.filler.Fill(ctx, p, controls)
	if err != nil {
		return AutofillResponse{}, err
	}
	h.metrics.RecordAutofill(source, result.Filled)

	return AutofillResponse{
		Filled:  result.Filled,
		Keys:    result.Keys,
		HTML:    doc.String(),
		Message: result.Message(),
	}, nil
}

// Panel handles GET /api/v1/panel
func (h *PageHandler) Panel(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.panel.Snapshot())
}

// TogglePanel handles POST /api/v1/panel/toggle
func (h *PageHandler) TogglePanel(w http.ResponseWriter, r *http.Request) {
	h.panel.Toggle()
	httputil.JSON(w, http.StatusOK, h.panel.Snapshot())
}

// ToggleAnswer handles POST /api/v1/panel/answer/toggle
func (h *PageHandler) ToggleAnswer(w http.ResponseWriter, r *http.Request) {
	h.panel.ToggleAnswer()
	httputil.JSON(w, http.StatusOK, h.panel.Snapshot())
}

// Why handles GET /api/v1/panel/why
func (h *PageHandler) Why(w http.ResponseWriter, r *http.Request) {
	why, err := h.panel.Why(r.Context())
	if err != nil {
		h.logger.Error("Failed to explain panel state", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"why": why})
}

func (h *PageHandler) writePanelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, panel.ErrSuperseded):
		httputil.JSONError(w, http.StatusConflict, "SUPERSEDED", "A newer question replaced this one", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httputil.JSONError(w, http.StatusServiceUnavailable, domain.ErrCodeServiceUnavail, "Request canceled", nil)
	default:
		h.logger.Error("Page analysis failed", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
	}
}
