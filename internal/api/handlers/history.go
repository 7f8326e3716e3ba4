package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/audit"
	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/pkg/httputil"
)

// HistorySource answers profile audit queries
type HistorySource interface {
	Query(ctx context.Context, opts audit.QueryOptions) ([]*audit.Entry, error)
}

// HistoryHandler lists which profile keys were written and when
type HistoryHandler struct {
	source    HistorySource
	profileID string
	logger    *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(source HistorySource, profileID string, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		source:    source,
		profileID: profileID,
		logger:    logger,
	}
}

// HistoryResponse is the body of GET /api/v1/profile/history
type HistoryResponse struct {
	Entries []*audit.Entry `json:"entries"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// List handles GET /api/v1/profile/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	entries, err := h.source.Query(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to query profile history", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	httputil.JSON(w, http.StatusOK, HistoryResponse{
		Entries: entries,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

func (h *HistoryHandler) parseQuery(w http.ResponseWriter, r *http.Request) (audit.QueryOptions, bool) {
	q := r.URL.Query()
	opts := audit.QueryOptions{
		ProfileID: h.profileID,
		Key:       q.Get("key"),
		Limit:     20,
	}

	if l := q.Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil && limit > 0 && limit <= 100 {
			opts.Limit = limit
		}
	}

	if o := q.Get("offset"); o != "" {
		if offset, err := strconv.Atoi(o); err == nil && offset >= 0 {
			opts.Offset = offset
		}
	}

	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			httputil.ErrorFromDomain(w, domain.ValidationError("since", "since must be an RFC 3339 timestamp"))
			return opts, false
		}
		opts.StartTime = since
	}

	return opts, true
}
