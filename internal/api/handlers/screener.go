package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/wonny/trendscan/internal/selection"
	"github.com/wonny/trendscan/pkg/logger"
)

// ScreenRunner runs a screen from raw query parameters
type ScreenRunner interface {
	ScreenValues(ctx context.Context, values url.Values) (*selection.Response, error)
}

// ScreenerHandler serves the screener endpoint
// ⭐ SSOT: 스크리너 API 핸들러는 이 구조체에서만
type ScreenerHandler struct {
	screener ScreenRunner
	logger   *logger.Logger
}

// NewScreenerHandler creates a new screener handler
func NewScreenerHandler(screener ScreenRunner, log *logger.Logger) *ScreenerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ScreenerHandler{
		screener: screener,
		logger:   log.WithModule("api"),
	}
}

// Screen returns the symbols matching the query filters
// GET /api/screener?ordered=true&minMcap=1e9&...
func (h *ScreenerHandler) Screen(w http.ResponseWriter, r *http.Request) {
	resp, err := h.screener.ScreenValues(r.Context(), r.URL.Query())
	if err != nil {
		h.respondScreenError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondScreenError maps validation errors to 400 and store failures to 503/500.
// Driver messages and SQL never reach the body.
func (h *ScreenerHandler) respondScreenError(w http.ResponseWriter, err error) {
	var vErr *selection.ValidationError
	if errors.As(err, &vErr) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: vErr.Error(),
			Field: vErr.Field,
		})
		return
	}

	var qErr *selection.QueryError
	if errors.As(err, &qErr) {
		status := http.StatusInternalServerError
		if qErr.Kind == selection.KindUnavailable {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, ErrorResponse{
			Error: qErr.Error(),
			Kind:  string(qErr.Kind),
		})
		return
	}

	h.logger.WithError(err).Error("Unclassified screener error")
	respondError(w, http.StatusInternalServerError, "Internal server error")
}
